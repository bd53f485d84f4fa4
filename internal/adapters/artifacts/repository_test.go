package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
)

const factoryABI = `[
  {"type":"constructor","inputs":[{"name":"_feeToSetter","type":"address"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"pairCodeHash","inputs":[],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view"}
]`

func writeArtifact(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newTestRepository(t *testing.T) (*Repository, string) {
	t.Helper()
	root := t.TempDir()

	// Foundry layout
	writeArtifact(t, root, "out/FinswapFactory.sol/FinswapFactory.json",
		`{"abi":`+factoryABI+`,"bytecode":{"object":"0x6080604052","linkReferences":{}}}`)
	writeArtifact(t, root, "out/IFinswapFactory.sol/IFinswapFactory.json",
		`{"abi":[],"bytecode":{"object":"0x","linkReferences":{}}}`)
	writeArtifact(t, root, "out/Router.sol/FinswapRouter.json",
		`{"abi":[],"bytecode":{"object":"0x60806040","linkReferences":{"src/lib/Math.sol":{"Math":[{"start":1,"length":20}]}}}}`)
	writeArtifact(t, root, "out/Token.sol/Token.json", `{"abi":[],"bytecode":{"object":"0x6001"}}`)
	writeArtifact(t, root, "out/TokenV2.sol/Token.json", `{"abi":[],"bytecode":{"object":"0x6002"}}`)
	writeArtifact(t, root, "out/build-info/abc.json", `{"id":"abc"}`)

	// Truffle layout
	writeArtifact(t, root, "build/contracts/WFTC.json",
		`{"contractName":"WFTC","abi":[],"bytecode":"0x60806040"}`)
	writeArtifact(t, root, "build/contracts/Linked.json",
		`{"contractName":"Linked","abi":[],"bytecode":"0x6080__SafeMath______________________________6040"}`)

	return NewRepository(&config.RuntimeConfig{ProjectRoot: root}), root
}

func TestRepository_GetBlueprint(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	t.Run("foundry artifact", func(t *testing.T) {
		bp, err := repo.GetBlueprint(ctx, "FinswapFactory")
		require.NoError(t, err)

		assert.Equal(t, "FinswapFactory", bp.Name)
		assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, bp.Bytecode)
		assert.Equal(t, filepath.Join("out", "FinswapFactory.sol", "FinswapFactory.json"), bp.Source)
		require.NotNil(t, bp.ABI)
		assert.Contains(t, bp.ABI.Methods, "pairCodeHash")
		assert.Len(t, bp.ABI.Constructor.Inputs, 1)
	})

	t.Run("truffle artifact", func(t *testing.T) {
		bp, err := repo.GetBlueprint(ctx, "WFTC")
		require.NoError(t, err)
		assert.Equal(t, "WFTC", bp.Name)
		assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40}, bp.Bytecode)
	})

	t.Run("cached", func(t *testing.T) {
		first, err := repo.GetBlueprint(ctx, "WFTC")
		require.NoError(t, err)
		second, err := repo.GetBlueprint(ctx, "WFTC")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("artifact path", func(t *testing.T) {
		bp, err := repo.GetBlueprint(ctx, "out/TokenV2.sol/Token.json")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x02}, bp.Bytecode)
	})

	t.Run("file qualified name", func(t *testing.T) {
		bp, err := repo.GetBlueprint(ctx, "Token.sol:Token")
		require.NoError(t, err)
		assert.Equal(t, []byte{0x60, 0x01}, bp.Bytecode)
	})
}

func TestRepository_Errors(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	t.Run("unknown name suggests close matches", func(t *testing.T) {
		_, err := repo.GetBlueprint(ctx, "FinswapFactry")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrBlueprintNotFound)

		var notFound domain.NoBlueprintMatchErr
		require.ErrorAs(t, err, &notFound)
		assert.Contains(t, notFound.Suggestions, "FinswapFactory")
	})

	t.Run("ambiguous name", func(t *testing.T) {
		_, err := repo.GetBlueprint(ctx, "Token")
		var ambiguous domain.AmbiguousBlueprintErr
		require.ErrorAs(t, err, &ambiguous)
		assert.Len(t, ambiguous.Matches, 2)
	})

	t.Run("interface without bytecode", func(t *testing.T) {
		_, err := repo.GetBlueprint(ctx, "IFinswapFactory")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no bytecode")
	})

	t.Run("foundry link references", func(t *testing.T) {
		_, err := repo.GetBlueprint(ctx, "FinswapRouter")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unlinked library")
	})

	t.Run("truffle link placeholder", func(t *testing.T) {
		_, err := repo.GetBlueprint(ctx, "Linked")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unlinked library")
	})

	t.Run("missing artifact path", func(t *testing.T) {
		_, err := repo.GetBlueprint(ctx, "out/Nope.sol/Nope.json")
		assert.ErrorIs(t, err, domain.ErrBlueprintNotFound)
	})
}

func TestRepository_Names(t *testing.T) {
	repo, _ := newTestRepository(t)

	names, err := repo.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"FinswapFactory", "FinswapRouter", "IFinswapFactory", "Linked", "Token", "WFTC"}, names)
}

func TestRepository_MissingDirectories(t *testing.T) {
	repo := NewRepository(&config.RuntimeConfig{ProjectRoot: t.TempDir()})

	_, err := repo.GetBlueprint(context.Background(), "Anything")
	assert.ErrorIs(t, err, domain.ErrBlueprintNotFound)
}
