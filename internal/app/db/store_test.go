package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"messenger/internal/app/store"
)

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: pgx.ErrNoRows, want: store.ErrNotFound},
		{name: "wrapped no rows", in: fmt.Errorf("scan: %w", pgx.ErrNoRows), want: store.ErrNotFound},
		{name: "unique", in: &pgconn.PgError{Code: uniqueViolation}, want: store.ErrConflict},
		{name: "foreign key", in: &pgconn.PgError{Code: foreignKeyViolation}, want: store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr(tt.in)
			if tt.want == nil {
				require.NoError(t, got)
				return
			}
			require.ErrorIs(t, got, tt.want)
		})
	}

	other := errors.New("connection reset")
	require.Equal(t, other, mapErr(other))
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	req := require.New(t)

	req.Equal(`%ann%`, likePattern("Ann"))
	req.Equal(`%50\%\_off%`, likePattern("50%_off"))
}

func TestLimitArg(t *testing.T) {
	req := require.New(t)

	req.Nil(limitArg(0))
	req.Nil(limitArg(-3))
	req.Equal(20, limitArg(20))
}
