package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/permcheck/checker/oracle"
	"github.com/dev-mohitbeniwal/permcheck/config"
)

func TestOracleOptions_StaticWithoutAPIKey(t *testing.T) {
	for _, provider := range []string{"openai", "huggingface"} {
		t.Run(provider, func(t *testing.T) {
			t.Setenv("PERMCHECK_ORACLE_PROVIDER", provider)
			t.Setenv("PERMCHECK_ORACLE_APIKEY", "")
			require.NoError(t, config.InitConfig())

			assert.Equal(t, oracle.ProviderStatic, OracleOptions().Provider)
		})
	}
}

func TestOracleOptions_KeepsProviderWithAPIKey(t *testing.T) {
	t.Setenv("PERMCHECK_ORACLE_PROVIDER", "openai")
	t.Setenv("PERMCHECK_ORACLE_APIKEY", "sk-test")
	require.NoError(t, config.InitConfig())

	opts := OracleOptions()
	assert.Equal(t, oracle.ProviderOpenAI, opts.Provider)
	assert.Equal(t, "sk-test", opts.APIKey)
}

func TestNewChecker_BootsWithDefaults(t *testing.T) {
	t.Setenv("PERMCHECK_ORACLE_APIKEY", "")
	t.Setenv("PERMCHECK_CHECKER_EXCLUDEDIRS", "auth,user")
	require.NoError(t, config.InitConfig())

	chk, err := NewChecker()
	require.NoError(t, err)
	assert.NotNil(t, chk)
}
