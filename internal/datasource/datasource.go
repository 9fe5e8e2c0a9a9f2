// Package datasource supplies the patient directory that the dashboard and
// search views read from. A source is chosen once at startup.
package datasource

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boamahfreda240-hash/Medihealth-Project/internal/config"
	"github.com/boamahfreda240-hash/Medihealth-Project/internal/domain/patient"
)

// DataSource returns every visible patient with its full record history
// (archived records included) populated.
type DataSource interface {
	Name() string
	Patients(ctx context.Context) ([]*patient.Patient, error)
}

// New builds the source named by kind.
func New(kind, baseURL string, client *http.Client) (DataSource, error) {
	switch kind {
	case config.SourceRemote:
		opts := []RemoteOption{}
		if client != nil {
			opts = append(opts, WithHTTPClient(client))
		}
		return NewRemoteSource(baseURL, opts...), nil
	case config.SourceStatic:
		return NewStaticFixtureSource(), nil
	}
	return nil, fmt.Errorf("unknown data source %q", kind)
}
