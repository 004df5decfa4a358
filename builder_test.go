package rsdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuilder(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	assert.Equal(t, DefaultTablePrefix, b.tablePrefix)
	assert.Equal(t, DefaultIndexTable, b.indexTable)
	assert.Equal(t, DefaultPrimaryEncoding, b.primaryEncoding)
	assert.Equal(t, DefaultFallbackEncoding, b.fallbackEncoding)
	assert.Equal(t, DefaultSplitRule(), b.splitRule)
	assert.Nil(t, b.logger)
}

func TestImporterBuilder_Build(t *testing.T) {
	t.Parallel()

	t.Run("valid configuration", func(t *testing.T) {
		t.Parallel()

		src := t.TempDir()
		im, err := NewBuilder().
			SourceDir(src).
			OutputFile(filepath.Join(t.TempDir(), "rs.db")).
			WithTablePrefix("rs_").
			WithIndexTable("lookup").
			WithEncodings("utf-8", "euc-jp").
			WithoutSplit().
			Build(context.Background())
		require.NoError(t, err)
		assert.Equal(t, src, im.sourceDir)
		assert.Equal(t, "rs_", im.tablePrefix)
		assert.Equal(t, "lookup", im.indexTable.String())
		assert.Equal(t, "euc-jp", im.loader.decoder.fallbackName)
		assert.Empty(t, im.splitRule.Archive)
		assert.NotNil(t, im.logger)
	})

	tests := []struct {
		name      string
		configure func(b *ImporterBuilder, dir string) *ImporterBuilder
		wantErr   string
	}{
		{
			name: "missing source folder",
			configure: func(b *ImporterBuilder, dir string) *ImporterBuilder {
				return b.SourceDir(filepath.Join(dir, "missing"))
			},
			wantErr: "source folder does not exist",
		},
		{
			name: "empty source folder",
			configure: func(b *ImporterBuilder, _ string) *ImporterBuilder {
				return b.SourceDir("")
			},
			wantErr: "source folder cannot be empty",
		},
		{
			name: "empty output file",
			configure: func(b *ImporterBuilder, _ string) *ImporterBuilder {
				return b.OutputFile(" ")
			},
			wantErr: "output database file cannot be empty",
		},
		{
			name: "output file is a directory",
			configure: func(b *ImporterBuilder, dir string) *ImporterBuilder {
				return b.OutputFile(dir)
			},
			wantErr: "is a directory",
		},
		{
			name: "invalid table prefix",
			configure: func(b *ImporterBuilder, _ string) *ImporterBuilder {
				return b.WithTablePrefix("tbl-")
			},
			wantErr: "invalid table prefix",
		},
		{
			name: "invalid index table",
			configure: func(b *ImporterBuilder, _ string) *ImporterBuilder {
				return b.WithIndexTable("table index")
			},
			wantErr: "invalid index table",
		},
		{
			name: "unknown encoding",
			configure: func(b *ImporterBuilder, _ string) *ImporterBuilder {
				return b.WithEncodings("klingon", "")
			},
			wantErr: "unknown encoding",
		},
		{
			name: "split rule without amount column",
			configure: func(b *ImporterBuilder, _ string) *ImporterBuilder {
				rule := DefaultSplitRule()
				rule.AmountColumn = ""
				return b.WithSplitRule(rule)
			},
			wantErr: "amount column",
		},
		{
			name: "split rule with equal suffixes",
			configure: func(b *ImporterBuilder, _ string) *ImporterBuilder {
				rule := DefaultSplitRule()
				rule.DetailsViewSuffix = rule.SummaryViewSuffix
				return b.WithSplitRule(rule)
			},
			wantErr: "must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			b := NewBuilder().SourceDir(dir).OutputFile(filepath.Join(dir, "rs.db"))
			_, err := tt.configure(b, dir).Build(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("all problems are reported together", func(t *testing.T) {
		t.Parallel()

		_, err := NewBuilder().WithIndexTable("").Build(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "source folder cannot be empty")
		assert.Contains(t, err.Error(), "output database file cannot be empty")
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewBuilder().Build(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestValidator(t *testing.T) {
	t.Parallel()

	v := newValidator()

	t.Run("source folder is a file", func(t *testing.T) {
		t.Parallel()

		file := filepath.Join(t.TempDir(), "zip")
		require.NoError(t, os.WriteFile(file, nil, 0o600))
		assert.ErrorContains(t, v.validateSourceDir(file), "not a directory")
	})

	t.Run("output parent is a file", func(t *testing.T) {
		t.Parallel()

		file := filepath.Join(t.TempDir(), "data")
		require.NoError(t, os.WriteFile(file, nil, 0o600))
		assert.ErrorContains(t, v.validateOutputFile(filepath.Join(file, "rs.db")), "not a directory")
	})

	t.Run("missing output parent is allowed", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, v.validateOutputFile(filepath.Join(t.TempDir(), "a", "b", "rs.db")))
	})

	t.Run("empty table prefix is allowed", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, v.validateTablePrefix(""))
	})

	t.Run("disabled split rule is not checked", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, v.validateSplitRule(SplitRule{}))
	})
}
