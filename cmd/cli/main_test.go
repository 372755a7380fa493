package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/hoyle1974/chunkfile"
	"github.com/hoyle1974/chunkfile/chunks"
	"github.com/hoyle1974/chunkfile/misc"
	"github.com/hoyle1974/chunkfile/storage"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, sys storage.System, name string, payload string) {
	t.Helper()

	s := chunkfile.NewStore(sys, chunkfile.StoreConfig{CacheTTL: -1})
	_, err := s.Save(context.Background(), name, uint64(chunks.MustChunkId("TEST")), func(w *chunks.Writer) error {
		cw, err := w.OpenChunk(chunks.MustChunkId("DATA"))
		if err != nil {
			return err
		}
		defer cw.Close()
		_, err = cw.Write([]byte(payload))
		return err
	})
	require.NoError(t, err)
}

func runCli(t *testing.T, sys storage.System, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	err := run(context.Background(), args, &out, sys)
	return out.String(), err
}

func TestList(t *testing.T) {
	sys := storage.NewMemoryStorage()
	seed(t, sys, "b", "two")
	seed(t, sys, "a", "one")

	out, err := runCli(t, sys, "list")
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", out)
}

func TestInspect(t *testing.T) {
	sys := storage.NewMemoryStorage()
	seed(t, sys, "a", "hello")

	out, err := runCli(t, sys, "-f", "TEST", "inspect", "a")
	require.NoError(t, err)
	require.Contains(t, out, "Container: a")
	require.Contains(t, out, "DATA")

	out, err = runCli(t, sys, "--fingerprint", "0x54534554", "--json", "inspect", "a")
	require.NoError(t, err)
	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Equal(t, "a", report.Name)
	require.Len(t, report.Chunks, 1)
	require.Equal(t, "DATA", report.Chunks[0].Id)
	require.Equal(t, uint64(24), report.Chunks[0].Offset)
	require.Equal(t, uint64(5), report.Chunks[0].Payload)
}

func TestInspectWrongFingerprint(t *testing.T) {
	sys := storage.NewMemoryStorage()
	seed(t, sys, "a", "hello")

	_, err := runCli(t, sys, "-f", "OTHER", "inspect", "a")
	require.ErrorIs(t, err, chunks.ErrMalformedContainer)

	_, err = runCli(t, sys, "inspect", "a")
	require.ErrorContains(t, err, "fingerprint")
}

func TestDump(t *testing.T) {
	sys := storage.NewMemoryStorage()
	seed(t, sys, "a", "hello")

	out, err := runCli(t, sys, "-f", "TEST", "dump", "a", "DATA")
	require.NoError(t, err)
	require.Contains(t, out, "68 65 6c 6c 6f")

	_, err = runCli(t, sys, "-f", "TEST", "dump", "a", "NOPE")
	require.ErrorIs(t, err, chunks.ErrChunkNotFound)
}

func TestImport(t *testing.T) {
	buf := &misc.Buffer{}
	w := chunks.NewWriter(buf, uint64(chunks.MustChunkId("TEST")))
	require.NoError(t, w.Open())
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "empty.chnk")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	sys := storage.NewMemoryStorage()
	out, err := runCli(t, sys, "-f", "TEST", "import", "empty", path)
	require.NoError(t, err)
	require.Contains(t, out, "imported")

	out, err = runCli(t, sys, "list")
	require.NoError(t, err)
	require.Equal(t, "empty\n", out)
}

func TestDiffCommand(t *testing.T) {
	sys := storage.NewMemoryStorage()
	seed(t, sys, "a", "hello world")
	seed(t, sys, "b", "hello there")

	out, err := runCli(t, sys, "-f", "TEST", "diff", "a", "b")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[1], "changed"))
}

func TestUsage(t *testing.T) {
	sys := storage.NewMemoryStorage()

	_, err := runCli(t, sys)
	require.ErrorContains(t, err, "usage")
	_, err = runCli(t, sys, "bogus")
	require.ErrorContains(t, err, "unknown command")
	_, err = runCli(t, sys, "inspect")
	require.ErrorContains(t, err, "inspect <name>")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunkfile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source: s3
uri: ignored
s3:
  bucket: assets
  region: eu-west-1
fingerprints: [TEST, "0x10"]
`), 0644))

	f := newFlags()
	require.NoError(t, f.set.Parse([]string{"--config", path, "--region", "us-east-1"}))
	cfg, err := f.resolve()
	require.NoError(t, err)

	require.Equal(t, "s3", cfg.Source)
	require.Equal(t, "assets", cfg.S3.Bucket)
	require.Equal(t, "us-east-1", cfg.S3.Region)

	fps, err := parseFingerprints(cfg.Fingerprints)
	require.NoError(t, err)
	require.Equal(t, []uint64{uint64(chunks.MustChunkId("TEST")), 0x10}, fps)
}

func TestParseId(t *testing.T) {
	id, err := parseId("MESH")
	require.NoError(t, err)
	require.Equal(t, chunks.MustChunkId("MESH"), id)

	id, err = parseId("0x666")
	require.NoError(t, err)
	require.Equal(t, chunks.ChunkIdFromLiteral(0x666), id)

	_, err = parseId("")
	require.ErrorIs(t, err, chunks.ErrArgumentEmpty)
}
