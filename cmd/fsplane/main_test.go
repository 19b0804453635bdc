package main

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlane struct{ err error }

func (f fakePlane) Initialize(ctx context.Context) error { return f.err }

type recordingCloser struct {
	closed int
	err    error
}

func (r *recordingCloser) Close() error {
	r.closed++
	return r.err
}

func TestStartClosesResourcesWhenInitializeFails(t *testing.T) {
	store := &recordingCloser{}
	sink := &recordingCloser{err: errors.New("flush failed")}
	initErr := errors.New("boom")

	err := start(context.Background(), fakePlane{err: initErr}, []io.Closer{store, sink})
	require.Error(t, err)
	assert.ErrorIs(t, err, initErr)
	assert.ErrorContains(t, err, "flush failed")
	assert.Equal(t, 1, store.closed)
	assert.Equal(t, 1, sink.closed)
}

func TestStartLeavesResourcesOpenOnSuccess(t *testing.T) {
	store := &recordingCloser{}

	require.NoError(t, start(context.Background(), fakePlane{}, []io.Closer{store}))
	assert.Zero(t, store.closed, "a ready plane closes them during Shutdown")
}

func TestCloseAllSkipsNil(t *testing.T) {
	c := &recordingCloser{}
	assert.NoError(t, closeAll([]io.Closer{nil, c}))
	assert.Equal(t, 1, c.closed)
}
