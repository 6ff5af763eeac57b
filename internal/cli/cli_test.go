package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `
package: shop
models:
  - name: User
    accessors:
      - {name: ID, tag: id}
      - {name: Email, tag: "column(type=email, notnull)"}
  - name: Post
    accessors:
      - {name: ID, tag: id}
      - {name: Author, tag: manytoone(User)}
`

func init() {
	color.NoColor = true
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "actorgen", cmd.Use)
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"generate", "watch", "version"})
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}

func TestVersionCommand(t *testing.T) {
	Version, GitCommit = "1.2.3", "abc123"
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "actorgen version: 1.2.3")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: go")
}

func TestLoadConfig(t *testing.T) {
	t.Run("file with env override", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, filepath.Join(dir, "actorgen.yaml"), `
sources:
  schemas: [shop.yaml]
output:
  target: gen/actors
  package: actors
workers: 2
`)
		t.Setenv("ACTORGEN_OUTPUT_PACKAGE", "shopactors")
		cfg, err := LoadConfig(viper.New(), path)
		require.NoError(t, err)
		assert.Equal(t, []string{"shop.yaml"}, cfg.Sources.Schemas)
		assert.Equal(t, "gen/actors", cfg.Output.Target)
		assert.Equal(t, "shopactors", cfg.Output.Package)
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, "shopactors", cfg.GenOutput().Package)
	})

	t.Run("defaults from the working directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		writeFile(t, filepath.Join(dir, "actorgen.yaml"), "sources:\n  dirs: [model]\n")
		cfg, err := LoadConfig(viper.New(), "")
		require.NoError(t, err)
		assert.Equal(t, "actors", cfg.Output.Target)
		out := cfg.GenOutput()
		assert.Equal(t, "actors", out.Package)
		assert.NotEmpty(t, out.Header)
		assert.Equal(t, []string{"model"}, cfg.Inputs())
	})

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no sources", content: "output:\n  target: out\n", want: "no declaration sources configured"},
		{name: "negative workers", content: "sources:\n  dirs: [m]\nworkers: -1\n", want: "workers must not be negative"},
		{name: "malformed file", content: "sources: [", want: "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, filepath.Join(t.TempDir(), "actorgen.yaml"), tt.content)
			_, err := LoadConfig(viper.New(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := LoadConfig(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})
}

func TestConfigInputs(t *testing.T) {
	cfg := &Config{Sources: SourcesConfig{
		Dirs:     []string{"model"},
		Packages: []string{"./domain/...", "github.com/acme/shop/model"},
		Schemas:  []string{"shop.yaml"},
	}}
	assert.Equal(t, []string{"model", "./domain", "shop.yaml"}, cfg.Inputs())
}

func TestGenerateCommand(t *testing.T) {
	t.Run("writes the actors", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, filepath.Join(dir, "shop.yaml"), schema)
		target := filepath.Join(dir, "actors")

		out, err := execute(t, "generate", "--schema", path, "--target", target)
		require.NoError(t, err, out)
		assert.Contains(t, out, "✓ wrote 7 file(s) for 2 model(s)")
		for _, file := range []string{"actors.go", "user_validator.go", "user_persister.go", "post_query.go"} {
			_, err := os.Stat(filepath.Join(target, file))
			assert.NoError(t, err, file)
		}
	})

	t.Run("dry run lists the files", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, filepath.Join(dir, "shop.yaml"), schema)
		target := filepath.Join(dir, "actors")

		out, err := execute(t, "generate", "--schema", path, "--target", target, "--dry-run")
		require.NoError(t, err, out)
		assert.Contains(t, out, "user_validator.go  UserValidator")
		assert.Contains(t, out, "✓ rendered 7 file(s)")
		_, err = os.Stat(target)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("reports failed models", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, filepath.Join(dir, "shop.yaml"), schema+`
  - name: Invoice
    accessors:
      - {name: ID, tag: id}
      - {name: Order, tag: manytoone(Order)}
`)
		out, err := execute(t, "generate", "--schema", path, "--dry-run")
		require.Error(t, err)
		assert.Equal(t, "1 model(s) failed", err.Error())
		assert.Contains(t, out, "✗ shop.Invoice")
		assert.Contains(t, out, `"Order"`)
		assert.Contains(t, out, "1 model(s) skipped")
	})

	t.Run("invalid package", func(t *testing.T) {
		dir := t.TempDir()
		path := writeFile(t, filepath.Join(dir, "shop.yaml"), schema)
		_, err := execute(t, "generate", "--schema", path, "--target", filepath.Join(dir, "gen-actors"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "package must be a Go identifier")
	})
}
