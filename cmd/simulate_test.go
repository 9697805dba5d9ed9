package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/propertyinbox/internal/simulation"
)

func TestSimulateCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  error
		contains []string
	}{
		{
			name:     "summary only",
			args:     []string{"--price", "98000000", "--rent", "520000", "--units", "8"},
			contains: []string{"【投資シミュレーション結果】", "【投資指標】", "表面利回り"},
		},
		{
			name:    "missing rent",
			args:    []string{"--price", "98000000"},
			wantErr: simulation.ErrInvalidInput,
		},
		{
			name:    "missing price",
			args:    []string{"--rent", "520000"},
			wantErr: simulation.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newSimulateCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out.String(), s)
			}
		})
	}
}

func TestSimulateCommandWritesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.xlsx")

	cmd := newSimulateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--price", "98000000",
		"--rent", "520000",
		"--xlsx", path,
		"--number", "12345",
		"--station", "渋谷",
	})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// xlsx files are zip archives
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
	assert.Contains(t, out.String(), "Workbook written to "+path)
}
