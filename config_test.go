package fwenable

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	withHost := []HostRule{{Host: "db.example.org"}}

	cases := []struct {
		name    string
		conf    Config
		wantErr string
	}{
		{"standard only", Config{Username: "u"}, ""},
		{"both disabled", Config{Username: "u", NoStandard: true, NoSpecific: true}, "Nothing to do"},
		{"both disabled beats missing username", Config{NoStandard: true, NoSpecific: true}, "Nothing to do"},
		{"missing username", Config{}, "username"},
		{"specific without hosts", Config{Username: "u", NoStandard: true}, "no specific hosts"},
		{"specific with hosts", Config{Username: "u", NoStandard: true, Hosts: withHost}, ""},
		{"too many hosts", Config{Username: "u", Hosts: make([]HostRule, HostSlots+1)}, "at most"},
		{"bad delays", Config{Username: "u", MinDelay: 2 * time.Second, MaxDelay: time.Second}, "delay"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.conf.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			require.Contains(t, ce.Error(), tc.wantErr)
		})
	}
}

func TestPlan(t *testing.T) {
	conf := Config{Username: "u", Hosts: []HostRule{{}, {Host: "h"}}}
	require.True(t, conf.Standard())
	require.True(t, conf.Specific())

	conf.NoSpecific = true
	require.False(t, conf.Specific())

	conf = Config{Username: "u"}
	require.False(t, conf.Specific())
}

func TestWithDefaults(t *testing.T) {
	c := Config{}.WithDefaults()
	require.Equal(t, DefaultURL, c.URL)
	require.Equal(t, DefaultUserAgent, c.UserAgent)
	require.Equal(t, time.Second, c.MinDelay)
	require.Equal(t, 3*time.Second, c.MaxDelay)

	c = Config{MinDelay: 5 * time.Second}.WithDefaults()
	require.Equal(t, 5*time.Second, c.MaxDelay)

	c = Config{URL: "http://portal.test/", MaxDelay: time.Millisecond}.WithDefaults()
	require.Equal(t, "http://portal.test/", c.URL)
	require.Equal(t, time.Duration(0), c.MinDelay)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
url: http://portal.test:900/
timeout: 30
username: alice
hosts:
  - host: db.example.org
  - service: https
    host: www.example.org
min_delay: 500ms
max_delay: 2s
no_standard: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	conf, err := LoadConfigFile(path)
	require.NoError(t, err)
	require.Equal(t, "http://portal.test:900/", conf.URL)
	require.Equal(t, 30, conf.Timeout)
	require.Equal(t, "alice", conf.Username)
	require.True(t, conf.NoStandard)
	require.Equal(t, 500*time.Millisecond, conf.MinDelay)
	require.Equal(t, 2*time.Second, conf.MaxDelay)

	slots := conf.Slots()
	require.Equal(t, HostRule{Host: "db.example.org"}, slots[0])
	require.Equal(t, HostRule{Service: "https", Host: "www.example.org"}, slots[1])
	require.True(t, slots[2].Empty())
}

func TestExplicitZeroDelay(t *testing.T) {
	c := Config{}.WithDelay(0, 0).WithDefaults()
	require.Zero(t, c.MinDelay)
	require.Zero(t, c.MaxDelay)
	require.NoError(t, Config{Username: "u"}.WithDelay(0, 0).Validate())

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_delay: 0s\nmax_delay: 0s\n"), 0o600))
	conf, err := LoadConfigFile(path)
	require.NoError(t, err)
	conf = conf.WithDefaults()
	require.Zero(t, conf.MinDelay)
	require.Zero(t, conf.MaxDelay)

	// a file without delay keys still gets the defaults
	require.NoError(t, os.WriteFile(path, []byte("username: u\n"), 0o600))
	conf, err = LoadConfigFile(path)
	require.NoError(t, err)
	conf = conf.WithDefaults()
	require.Equal(t, DefaultMinDelay, conf.MinDelay)
	require.Equal(t, DefaultMaxDelay, conf.MaxDelay)
}

func TestLoadConfigFileErrors(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.ErrorIs(t, err, fs.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("usrname: typo\n"), 0o600))
	_, err = LoadConfigFile(path)
	require.Error(t, err)
}
