package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Default(t *testing.T) {
	assert := assert.New(t)

	cfg := Default()
	assert.Equal("standard", cfg.ArcType)
	assert.Equal([]string{"."}, cfg.Indir)
	assert.Equal(".", cfg.Outdir)
	assert.False(cfg.AlwaysExport)
}

func Test_Load_OverridesOnlyGivenFields(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "grmc.toml")
	content := "outdir = \"build\"\nalways_export = true\n"
	assert.NoError(os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	assert.NoError(err)

	assert.Equal("build", cfg.Outdir)
	assert.True(cfg.AlwaysExport)
	assert.Equal("standard", cfg.ArcType, "fields absent from the file must keep their Default() value")
}

func Test_Load_MissingFile_Errors(t *testing.T) {
	assert := assert.New(t)

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(err)
}

func Test_Load_InvalidToml_Errors(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	assert.NoError(os.WriteFile(path, []byte("not = [valid toml"), 0o644))

	_, err := Load(path)
	assert.Error(err)
}
