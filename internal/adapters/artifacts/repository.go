package artifacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sahilm/fuzzy"
	"github.com/samber/lo"
	"github.com/trebuchet-org/catapult/internal/domain"
	"github.com/trebuchet-org/catapult/internal/domain/config"
	"github.com/trebuchet-org/catapult/internal/domain/models"
	"github.com/trebuchet-org/catapult/internal/usecase"
)

// artifact covers both Foundry (bytecode.object) and Truffle (bytecode string) layouts
type artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

type foundryBytecode struct {
	Object         string                     `json:"object"`
	LinkReferences map[string]json.RawMessage `json:"linkReferences"`
}

// Repository resolves blueprints from compiled artifact directories
type Repository struct {
	projectRoot string
	paths       []string

	once  sync.Once
	index map[string][]string // contract name -> artifact paths relative to the project root
	err   error

	mu    sync.Mutex
	cache map[string]*models.Blueprint
}

// NewRepository creates a new artifact repository
func NewRepository(cfg *config.RuntimeConfig) *Repository {
	paths := cfg.Artifacts.Paths
	if len(paths) == 0 {
		paths = config.DefaultArtifactPaths
	}
	return &Repository{
		projectRoot: cfg.ProjectRoot,
		paths:       paths,
		cache:       make(map[string]*models.Blueprint),
	}
}

// GetBlueprint returns the blueprint for a contract name. The name may also be
// an artifact path or a "File.sol:Name" pair when several artifacts share a name.
func (r *Repository) GetBlueprint(ctx context.Context, name string) (*models.Blueprint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bp, ok := r.cache[name]; ok {
		return bp, nil
	}

	path, err := r.resolve(name)
	if err != nil {
		return nil, err
	}

	bp, err := r.load(name, path)
	if err != nil {
		return nil, err
	}
	r.cache[name] = bp
	return bp, nil
}

// Names returns every indexed contract name
func (r *Repository) Names() ([]string, error) {
	if err := r.buildIndex(); err != nil {
		return nil, err
	}
	names := lo.Keys(r.index)
	sort.Strings(names)
	return names, nil
}

func (r *Repository) resolve(name string) (string, error) {
	if strings.HasSuffix(name, ".json") {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.projectRoot, path)
		}
		if _, err := os.Stat(path); err != nil {
			return "", domain.NoBlueprintMatchErr{Name: name}
		}
		return path, nil
	}

	if err := r.buildIndex(); err != nil {
		return "", err
	}

	contract, file := name, ""
	if idx := strings.LastIndex(name, ":"); idx != -1 {
		file, contract = name[:idx], name[idx+1:]
	}

	candidates := r.index[contract]
	if file != "" {
		candidates = lo.Filter(candidates, func(p string, _ int) bool {
			return strings.HasSuffix(filepath.Dir(p), filepath.Base(file))
		})
	}

	switch len(candidates) {
	case 0:
		return "", domain.NoBlueprintMatchErr{Name: name, Suggestions: r.suggest(contract)}
	case 1:
		return filepath.Join(r.projectRoot, candidates[0]), nil
	default:
		return "", domain.AmbiguousBlueprintErr{Name: name, Matches: candidates}
	}
}

func (r *Repository) suggest(name string) []string {
	names := lo.Keys(r.index)
	sort.Strings(names)
	matches := fuzzy.Find(name, names)
	suggestions := lo.Map(matches, func(m fuzzy.Match, _ int) string { return m.Str })
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

// buildIndex walks the artifact directories once
func (r *Repository) buildIndex() error {
	r.once.Do(func() {
		r.index = make(map[string][]string)
		for _, dir := range r.paths {
			root := dir
			if !filepath.IsAbs(root) {
				root = filepath.Join(r.projectRoot, dir)
			}
			if _, err := os.Stat(root); os.IsNotExist(err) {
				continue
			}

			err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					if d.Name() == "build-info" {
						return filepath.SkipDir
					}
					return nil
				}
				if !strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".dbg.json") {
					return nil
				}
				rel, err := filepath.Rel(r.projectRoot, path)
				if err != nil {
					rel = path
				}
				contract := strings.TrimSuffix(d.Name(), ".json")
				r.index[contract] = append(r.index[contract], rel)
				return nil
			})
			if err != nil {
				r.err = fmt.Errorf("failed to index artifacts in %s: %w", dir, err)
				return
			}
		}
		for name := range r.index {
			sort.Strings(r.index[name])
		}
	})
	return r.err
}

func (r *Repository) load(name, path string) (*models.Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}

	parsed, err := abi.JSON(bytes.NewReader(art.ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI in %s: %w", path, err)
	}

	hexCode, err := creationCode(art.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	if strings.Contains(hexCode, "__") {
		return nil, fmt.Errorf("artifact %s has unlinked library references; link libraries before deploying", path)
	}
	code, err := hexutil.Decode(ensure0x(hexCode))
	if err != nil {
		return nil, fmt.Errorf("artifact %s has invalid bytecode: %w", path, err)
	}
	if len(code) == 0 {
		return nil, fmt.Errorf("artifact %s has no bytecode (interface or abstract contract?)", path)
	}

	contractName := art.ContractName
	if contractName == "" {
		contractName = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	source, err := filepath.Rel(r.projectRoot, path)
	if err != nil {
		source = path
	}

	return &models.Blueprint{
		Name:     contractName,
		ABI:      &parsed,
		Bytecode: code,
		Source:   source,
	}, nil
}

// creationCode extracts the hex string from either artifact layout
func creationCode(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var asObject foundryBytecode
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return "", fmt.Errorf("unrecognised bytecode format: %w", err)
	}
	if len(asObject.LinkReferences) > 0 {
		return "", fmt.Errorf("has unlinked library references; link libraries before deploying")
	}
	return asObject.Object, nil
}

func ensure0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

var _ usecase.BlueprintSource = (*Repository)(nil)
