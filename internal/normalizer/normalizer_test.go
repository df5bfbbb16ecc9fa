package normalizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setHelperCommand routes the converter binary to TestHelperProcess.
// It returns a pointer to the captured arguments of the last invocation.
func setHelperCommand(t *testing.T, mode string) *[]string {
	t.Helper()
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string{name}, args...)
		outdir := ""
		for i, arg := range args {
			if arg == "--outdir" && i+1 < len(args) {
				outdir = args[i+1]
			}
		}
		input := args[len(args)-1]
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			fmt.Sprintf("SOFFICE_HELPER_MODE=%s", mode),
			fmt.Sprintf("SOFFICE_HELPER_OUTDIR=%s", outdir),
			fmt.Sprintf("SOFFICE_HELPER_INPUT=%s", input),
		)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return &captured
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	outdir := os.Getenv("SOFFICE_HELPER_OUTDIR")
	input := filepath.Base(os.Getenv("SOFFICE_HELPER_INPUT"))
	stem := input[:len(input)-len(filepath.Ext(input))]

	switch os.Getenv("SOFFICE_HELPER_MODE") {
	case "success":
		if err := os.WriteFile(filepath.Join(outdir, stem+".pdf"), []byte("%PDF-1.7"), 0o644); err != nil {
			os.Exit(3)
		}
		os.Exit(0)
	case "no-output":
		os.Exit(0)
	case "failure":
		fmt.Fprintln(os.Stderr, "source file could not be loaded")
		os.Exit(1)
	case "hang":
		time.Sleep(10 * time.Second)
		os.Exit(0)
	default:
		os.Exit(0)
	}
}

func writeInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("document body"), 0o644))
	return path
}

func TestNewLibreOfficeWithBinary(t *testing.T) {
	assert.Equal(t, "soffice", NewLibreOffice().binary)
	assert.Equal(t, "/opt/libreoffice/program/soffice", NewLibreOffice(WithBinary("/opt/libreoffice/program/soffice")).binary)
	assert.Equal(t, "soffice", NewLibreOffice(WithBinary("")).binary)
}

func TestSupported(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"minutes.docx", true},
		{"scan.pdf", true},
		{"sheet.ODS", true},
		{"site-plan.dwg", false},
		{"survey.DXF", false},
		{"model.rvt", false},
		{"bridge.dgn", false},
		{"house.skp", false},
		{"README", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Supported(tt.name))
		})
	}
}

func TestConvert_RequiresPaths(t *testing.T) {
	lo := NewLibreOffice()

	_, err := lo.Convert(context.Background(), "", "/tmp")
	require.Error(t, err)

	_, err = lo.Convert(context.Background(), "/data/minutes.docx", " ")
	require.Error(t, err)
}

func TestConvert_UnsupportedDoesNotSpawn(t *testing.T) {
	captured := setHelperCommand(t, "success")
	lo := NewLibreOffice()

	_, err := lo.Convert(context.Background(), writeInput(t, "site-plan.dwg"), t.TempDir())
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Empty(t, *captured)
}

func TestConvert_Success(t *testing.T) {
	captured := setHelperCommand(t, "success")
	lo := NewLibreOffice()
	input := writeInput(t, "Ata Final.docx")
	outdir := filepath.Join(t.TempDir(), "derivatives")

	out, err := lo.Convert(context.Background(), input, outdir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outdir, "Ata Final.pdf"), out)
	assert.FileExists(t, out)

	assert.Equal(t, []string{"soffice", "--headless", "--norestore", "--convert-to", "pdf", "--outdir", outdir, input}, *captured)
}

func TestConvert_MissingOutput(t *testing.T) {
	setHelperCommand(t, "no-output")
	lo := NewLibreOffice()

	_, err := lo.Convert(context.Background(), writeInput(t, "minutes.docx"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "produced no output")
}

func TestConvert_StaleOutputIsNotReused(t *testing.T) {
	setHelperCommand(t, "no-output")
	lo := NewLibreOffice()
	outdir := t.TempDir()

	// left behind by an earlier conversion of report.doc
	stale := filepath.Join(outdir, "report.pdf")
	require.NoError(t, os.WriteFile(stale, []byte("%PDF-1.7 report.doc"), 0o644))

	out, err := lo.Convert(context.Background(), writeInput(t, "report.docx"), outdir)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "produced no output")
	assert.NoFileExists(t, stale)
}

func TestConvert_NonZeroExit(t *testing.T) {
	setHelperCommand(t, "failure")
	lo := NewLibreOffice()

	_, err := lo.Convert(context.Background(), writeInput(t, "minutes.docx"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source file could not be loaded")
}

type stubConverter struct {
	out string
	err error
}

func (s stubConverter) Convert(ctx context.Context, inputPath, outputDir string) (string, error) {
	return s.out, s.err
}

func TestNormalize_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		converter Converter
		wantOK    bool
		want      Outcome
	}{
		{"converted", stubConverter{out: "/work/a.pdf"}, true, OutcomeConverted},
		{"unsupported", stubConverter{err: fmt.Errorf("%w: a.dwg", ErrUnsupportedFormat)}, false, OutcomeUnsupported},
		{"timeout", stubConverter{err: fmt.Errorf("soffice convert a.docx: %w", context.DeadlineExceeded)}, false, OutcomeTimeout},
		{"failed", stubConverter{err: errors.New("exit status 1")}, false, OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(tt.converter, time.Second, discardLogger())
			var got []Outcome
			n.OnOutcome(func(o Outcome) { got = append(got, o) })

			out, ok := n.Normalize(context.Background(), "/in/a.docx", "/work")
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, "/work/a.pdf", out)
			} else {
				assert.Empty(t, out)
			}
			assert.Equal(t, []Outcome{tt.want}, got)
		})
	}
}

func TestNormalize_TimeoutKillsConverter(t *testing.T) {
	setHelperCommand(t, "hang")
	n := New(NewLibreOffice(), 200*time.Millisecond, discardLogger())
	var got Outcome
	n.OnOutcome(func(o Outcome) { got = o })

	start := time.Now()
	out, ok := n.Normalize(context.Background(), writeInput(t, "minutes.docx"), t.TempDir())
	assert.False(t, ok)
	assert.Empty(t, out)
	assert.Equal(t, OutcomeTimeout, got)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNew_DefaultTimeout(t *testing.T) {
	n := New(stubConverter{}, 0, discardLogger())
	assert.Equal(t, DefaultTimeout, n.timeout)
}
