package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("no space left on device")

// badCloseFile buffers writes and fails on Close, like a file whose final
// flush did not reach disk.
type badCloseFile struct {
	bytes.Buffer
	closed bool
}

func (f *badCloseFile) Close() error {
	f.closed = true
	return errDiskFull
}

// useBadCloseFile routes output file creation to f for the duration of the test.
func useBadCloseFile(t *testing.T) *badCloseFile {
	t.Helper()
	f := &badCloseFile{}
	orig := createFile
	createFile = func(string) (io.WriteCloser, error) { return f, nil }
	t.Cleanup(func() { createFile = orig })
	return f
}

func TestOutputCloseErrorFailsCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"ls plain", []string{"ls", "s3://etl/in/", "--output", "keys.txt"}},
		{"ls json", []string{"ls", "s3://etl/in/", "--json", "--output", "keys.jsonl"}},
		{"check", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useFakeProvider(t, &fakeProvider{buckets: checkBuckets})
			args := tt.args
			if args == nil {
				path := writeManifest(t, "gates.yaml", passingManifest)
				args = []string{"check", "--manifest", path, "--output", "results.jsonl"}
			}
			f := useBadCloseFile(t)

			_, err := runCLI(t, args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, errDiskFull)
			assert.Equal(t, foundry.ExitFileWriteError, ExitCode(err))
			assert.True(t, f.closed)
			assert.NotEmpty(t, f.String(), "records were written before the close")
		})
	}
}

func TestOpenOutput_Stdout(t *testing.T) {
	var stdout bytes.Buffer
	for _, path := range []string{"", "-"} {
		out, closeOut, err := openOutput(&stdout, path)
		require.NoError(t, err)
		assert.Same(t, &stdout, out)
		assert.NoError(t, closeOut())
	}
}

func TestCloseOutput_KeepsFirstError(t *testing.T) {
	first := errors.New("write failed")
	err := first
	closeOutput(func() error { return errDiskFull }, &err)
	assert.Equal(t, first, err)

	err = nil
	closeOutput(func() error { return errDiskFull }, &err)
	assert.ErrorIs(t, err, errDiskFull)
}

// brokenStdout fails every write, like a closed pipe.
type brokenStdout struct{}

func (brokenStdout) Write([]byte) (int, error) { return 0, errDiskFull }

func TestEmpty_StdoutWriteErrorFailsCommand(t *testing.T) {
	for _, args := range [][]string{
		{"empty", "s3://etl/processing/"},
		{"empty", "s3://etl/processing/", "--json"},
	} {
		t.Run(args[len(args)-1], func(t *testing.T) {
			useFakeProvider(t, &fakeProvider{buckets: checkBuckets})
			root := newRootCmd()
			root.SetOut(brokenStdout{})
			root.SetErr(io.Discard)
			root.SetArgs(args)

			err := root.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, errDiskFull)
			assert.Equal(t, foundry.ExitFileWriteError, ExitCode(err))
		})
	}
}
