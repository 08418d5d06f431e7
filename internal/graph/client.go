// Package graph wraps the Neo4j driver behind a small Cypher query boundary.
package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rotisserie/eris"
)

// Record is one row of a Cypher result, keyed by return alias.
type Record map[string]any

// Querier runs read-only Cypher queries against the graph store. The
// retrieval adapter depends on this interface so tests can substitute
// fixture rows for a live database.
type Querier interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]Record, error)
	Close(ctx context.Context) error
}

// Config holds graph store connection settings.
type Config struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

type driverQuerier struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewQuerier connects to the graph store and verifies connectivity.
func NewQuerier(ctx context.Context, cfg Config) (Querier, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, eris.Wrap(err, "graph: create driver")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, eris.Wrap(err, "graph: verify connectivity")
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	return &driverQuerier{driver: driver, database: database}, nil
}

func (q *driverQuerier) Query(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	result, err := neo4j.ExecuteQuery(ctx, q.driver, cypher, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(q.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "graph: execute query")
	}

	records := make([]Record, 0, len(result.Records))
	for _, rec := range result.Records {
		row := make(Record, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = rec.Values[i]
		}
		records = append(records, row)
	}
	return records, nil
}

func (q *driverQuerier) Close(ctx context.Context) error {
	return q.driver.Close(ctx)
}

// Unavailable returns a Querier whose every query fails with the given
// connection error. Callers that can serve partial results hand this to the
// retrieval adapter instead of aborting, so a graph outage degrades to
// draft-only retrieval.
func Unavailable(err error) Querier {
	return unavailableQuerier{err: err}
}

type unavailableQuerier struct {
	err error
}

func (q unavailableQuerier) Query(ctx context.Context, cypher string, params map[string]any) ([]Record, error) {
	return nil, eris.Wrap(q.err, "graph: store unavailable")
}

func (q unavailableQuerier) Close(ctx context.Context) error {
	return nil
}
