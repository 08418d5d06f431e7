package graph

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnavailableQuerier(t *testing.T) {
	q := Unavailable(eris.New("connection refused"))

	rows, err := q.Query(context.Background(), "MATCH (n) RETURN n", nil)
	require.Error(t, err)
	assert.Nil(t, rows)
	assert.Contains(t, err.Error(), "store unavailable")
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, q.Close(context.Background()))
}
