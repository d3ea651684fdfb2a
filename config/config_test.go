package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"deelit/crypto"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.PubKey().Address().String()
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8645", cfg.ListenAddress)
	require.Equal(t, int64(1), cfg.ChainID)
	require.Equal(t, "sync", cfg.RandomMode)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `ProtocolFeeBp = 100`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8645", cfg.ListenAddress)
	require.Equal(t, "./deelit-data", cfg.DataDir)
	require.Equal(t, uint32(100), cfg.ProtocolFeeBp)
}

func TestLoadValidates(t *testing.T) {
	path := writeConfig(t, `ProtocolFeeBp = 10001`)
	_, err := Load(path)
	require.Error(t, err)

	path = writeConfig(t, `RandomMode = "psychic"`)
	_, err = Load(path)
	require.Error(t, err)

	path = writeConfig(t, `EscrowVault = "not-an-address"`)
	_, err = Load(path)
	require.Error(t, err)
}

func TestLoadAcceptsBech32Identities(t *testing.T) {
	addr := testAddress(t)
	path := writeConfig(t, `
ListenAddress = ":9000"
EscrowVault = "`+addr+`"
FeeRecipient = "`+addr+`"
Judges = ["`+addr+`"]
RandomMode = "async"
RandomRequestPrice = "250"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)

	raw, err := Address(cfg.EscrowVault)
	require.NoError(t, err)
	require.NotEqual(t, [20]byte{}, raw)

	price, err := cfg.RandomPrice()
	require.NoError(t, err)
	require.Zero(t, price.Cmp(big.NewInt(250)))
}

func TestRandomPrice(t *testing.T) {
	cfg := &Config{}
	price, err := cfg.RandomPrice()
	require.NoError(t, err)
	require.Zero(t, price.Sign())

	cfg.RandomRequestPrice = "bogus"
	_, err = cfg.RandomPrice()
	require.Error(t, err)

	cfg.RandomRequestPrice = "-1"
	_, err = cfg.RandomPrice()
	require.Error(t, err)
}

func TestAddressHelper(t *testing.T) {
	raw, err := Address("")
	require.NoError(t, err)
	require.Equal(t, [20]byte{}, raw)

	_, err = Address("garbage")
	require.Error(t, err)
}
