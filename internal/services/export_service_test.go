package services

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportZipSkipsMissingFiles(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.catalog, env.blobs)

	data := makeJPEG(t, 20, 20)
	seedImage(t, env, "a.jpg", "image/jpeg", data)

	var buf bytes.Buffer
	err := svc.WriteZip(context.Background(), []string{"a.jpg", "missing.jpg"}, &buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "a.jpg", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestExportZipMultipleFiles(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.catalog, env.blobs)

	seedImage(t, env, "a.png", "image/png", makePNG(t, 10, 10))
	seedImage(t, env, "b.png", "image/png", makePNG(t, 12, 12))

	var buf bytes.Buffer
	err := svc.WriteZip(context.Background(), []string{"a.png", "b.png"}, &buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	names := make([]string, len(zr.File))
	for i, f := range zr.File {
		names[i] = f.Name
	}
	assert.ElementsMatch(t, []string{"a.png", "b.png"}, names)
}

func TestExportZipDeduplicatesNames(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.catalog, env.blobs)

	seedImage(t, env, "a.png", "image/png", makePNG(t, 10, 10))

	var buf bytes.Buffer
	err := svc.WriteZip(context.Background(), []string{"a.png", "a.png", ""}, &buf)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 1)
}

func TestExportZipStopsOnCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	svc := NewExportService(env.catalog, env.blobs)

	seedImage(t, env, "a.png", "image/png", makePNG(t, 10, 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := svc.WriteZip(ctx, []string{"a.png"}, &buf)
	assert.ErrorIs(t, err, context.Canceled)
}
