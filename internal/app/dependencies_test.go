package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloseRunsInReverseAndJoinsErrors(t *testing.T) {
	var order []string
	boom := errors.New("redis close failed")
	d := &Dependencies{closers: []func() error{
		func() error { order = append(order, "postgres"); return nil },
		func() error { order = append(order, "redis"); return boom },
		func() error { order = append(order, "asynq"); return nil },
	}}

	err := d.Close()
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"asynq", "redis", "postgres"}, order)

	require.NoError(t, d.Close())
	require.Len(t, order, 3)
}
