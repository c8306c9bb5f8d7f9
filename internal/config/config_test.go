package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fragio/internal/translate"
)

func TestParse_Defaults(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, translate.DefaultMaxLength, c.MaxQueryLength)
	assert.Equal(t, "unix", c.Daemon.Network)
	assert.Equal(t, "relational:sqlite3", c.Daemon.Backend)
	assert.Equal(t, Default(), c)
}

func TestParse_Full(t *testing.T) {
	data := []byte(`
server: relational:mysql
params:
  host: db.internal
  port: 3306
  user: fragio
  password: s3cret
  database: odb
manifest: /etc/fragio/drivers.manifest
max_query_length: 4096
daemon:
  network: tcp
  address: 127.0.0.1:7070
  backend: relational:postgres
  journal: /var/lib/fragio/journal.db
  params:
    dsn: postgres://localhost/odb
`)

	c, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "relational:mysql", c.Server)
	assert.Equal(t, "db.internal", c.Params.Host)
	assert.Equal(t, 3306, c.Params.Port)
	assert.Equal(t, "s3cret", c.Params.Password)
	assert.Equal(t, "odb", c.Params.Database)
	assert.Equal(t, "/etc/fragio/drivers.manifest", c.Manifest)
	assert.Equal(t, 4096, c.MaxQueryLength)

	dc := c.DaemonConfig()
	assert.Equal(t, "tcp", dc.Network)
	assert.Equal(t, "127.0.0.1:7070", dc.Address)
	assert.Equal(t, "relational:postgres", dc.Backend)
	assert.Equal(t, "postgres://localhost/odb", dc.Params.DSN)
	assert.Equal(t, 4096, dc.MaxQueryLength)
	assert.Equal(t, "/var/lib/fragio/journal.db", c.Daemon.Journal)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown key", "sever: relational:mysql\n", "failed to parse YAML"},
		{"bad yaml", "server: [\n", "failed to parse YAML"},
		{"bad identifier", "server: relational\n", "invalid config"},
		{"too many separators", "server: a:b:c\n", "invalid config"},
		{"port out of range", "params:\n  port: 70000\n", "invalid config"},
		{"tiny max length", "max_query_length: 8\n", "invalid config"},
		{"bad network", "daemon:\n  network: udp\n", "invalid config"},
		{"bad backend", "daemon:\n  backend: sqlite3\n", "invalid config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fragio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: objstore:unix\nparams:\n  socket: /tmp/io.sock\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "objstore:unix", c.Server)
	assert.Equal(t, "/tmp/io.sock", c.Params.Socket)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate_AfterOverride(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	c.Server = "nocolon"
	assert.Error(t, c.Validate())
}
