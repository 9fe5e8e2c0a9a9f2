package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boamahfreda240-hash/Medihealth-Project/internal/domain/patient"
)

const defaultRecordFetchers = 4

// RemoteSource reads the directory from a running records API.
type RemoteSource struct {
	baseURL    string
	httpClient *http.Client
	fetchers   int
}

type RemoteOption func(*RemoteSource)

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(s *RemoteSource) { s.httpClient = c }
}

// WithConcurrency bounds the number of record histories fetched at once.
func WithConcurrency(n int) RemoteOption {
	return func(s *RemoteSource) {
		if n > 0 {
			s.fetchers = n
		}
	}
}

func NewRemoteSource(baseURL string, opts ...RemoteOption) *RemoteSource {
	s := &RemoteSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		fetchers:   defaultRecordFetchers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RemoteSource) Name() string { return "remote" }

// Patients lists non-deleted patients, archived ones included, then loads
// each patient's record history.
func (s *RemoteSource) Patients(ctx context.Context) ([]*patient.Patient, error) {
	var patients []*patient.Patient
	if err := s.getJSON(ctx, "/patients/all", &patients); err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchers)
	for _, p := range patients {
		p := p
		g.Go(func() error {
			records := []*patient.MedicalRecord{}
			if err := s.getJSON(gctx, "/patients/"+url.PathEscape(p.ID)+"/records", &records); err != nil {
				return fmt.Errorf("records for patient %s: %w", p.ID, err)
			}
			p.Records = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []*patient.Patient{}
	}
	return patients, nil
}

func (s *RemoteSource) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
