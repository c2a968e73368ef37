package exclusions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHostsList(t *testing.T) {
	input := `
127.0.0.1 localhost
0.0.0.0   partner.example www.partner.example  # inline
::1       ip6-localhost
0.0.0.0   *.wild.example .dot.example
notanip   bank.example
0.0.0.0   PARTNER.example
`
	got, err := ParseHostsList(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"partner.example", "www.partner.example"}, got)
}

func TestLoad_HostsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allow.hosts")
	require.NoError(t, os.WriteFile(path, []byte("0.0.0.0 wallet.partner.example\n"), 0o644))

	set, err := Load(path, nil)
	require.NoError(t, err)
	assert.True(t, set.Contains("wallet.partner.example"))
	assert.False(t, set.Contains("partner.example"))
}

func TestLoad_EtcHostsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(path, []byte("127.0.0.1 localhost\n0.0.0.0 bank.example\n"), 0o644))

	set, err := Load(path, nil)
	require.NoError(t, err)
	assert.True(t, set.Contains("bank.example"))
	assert.Equal(t, len(defaultsOnly(t))+1, set.Len())
}

func defaultsOnly(t *testing.T) []string {
	t.Helper()
	set, err := Load("", nil)
	require.NoError(t, err)
	return set.Domains()
}
