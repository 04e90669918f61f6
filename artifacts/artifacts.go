// Package artifacts loads compiled contracts from a brownie or foundry build directory.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"

	"github.com/smartcontractkit/lottery-deployments/contracts"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

// ErrArtifactNotFound is returned when no build layout holds the requested contract.
var ErrArtifactNotFound = errors.New("artifact not found")

// Layout is the build tool which produced an artifact.
type Layout string

const (
	// LayoutBrownie reads build/contracts/<Name>.json.
	LayoutBrownie Layout = "brownie"
	// LayoutFoundry reads out/<Name>.sol/<Name>.json.
	LayoutFoundry Layout = "foundry"
)

// Optimizer records the optimizer settings used at compile time.
type Optimizer struct {
	Enabled bool
	Runs    int64
}

// Artifact is a compiled contract.
type Artifact struct {
	Type   contracts.Type
	Layout Layout
	Path   string

	ABI      *abi.ABI
	ABIJSON  string
	Bytecode []byte

	// SourcePath is the source unit defining the contract, e.g. contracts/Lottery.sol.
	SourcePath string
	// Source is the text of SourcePath.
	Source string
	// Sources maps every source unit compiled with the contract to its text. A unit whose text
	// could not be found maps to "".
	Sources map[string]string
	// Remappings are the import remappings the sources compile with.
	Remappings      []string
	CompilerVersion string
	EVMVersion      string
	Optimizer       Optimizer
}

// MissingSources returns the source units whose text is unknown.
func (a *Artifact) MissingSources() []string {
	var missing []string
	for path, text := range a.Sources {
		if text == "" {
			missing = append(missing, path)
		}
	}
	slices.Sort(missing)

	return missing
}

// DeployData returns the init code followed by the ABI-encoded constructor arguments.
func (a *Artifact) DeployData(args ...any) ([]byte, error) {
	packed, err := a.ConstructorArgs(args...)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(a.Bytecode)+len(packed))
	data = append(data, a.Bytecode...)

	return append(data, packed...), nil
}

// ConstructorArgs ABI-encodes the constructor arguments.
func (a *Artifact) ConstructorArgs(args ...any) ([]byte, error) {
	packed, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s constructor arguments: %w", a.Type, err)
	}

	return packed, nil
}

// Store loads artifacts from a project directory.
type Store struct {
	root string
	lggr logger.Logger
}

// NewStore returns a Store reading below root, the project directory holding build/ or out/.
func NewStore(root string, lggr logger.Logger) *Store {
	if lggr == nil {
		lggr = logger.Nop()
	}

	return &Store{root: root, lggr: lggr.Named("artifacts")}
}

// Root returns the project directory.
func (s *Store) Root() string { return s.root }

// Load returns the artifact of the contract type. Brownie's layout is tried before foundry's.
func (s *Store) Load(t contracts.Type) (*Artifact, error) {
	candidates := []struct {
		layout Layout
		path   string
	}{
		{LayoutBrownie, filepath.Join(s.root, "build", "contracts", string(t)+".json")},
		{LayoutFoundry, filepath.Join(s.root, "out", string(t)+".sol", string(t)+".json")},
	}

	for _, c := range candidates {
		data, err := os.ReadFile(c.path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", c.path, err)
		}

		a, err := Parse(t, c.layout, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.path, err)
		}
		a.Path = c.path
		s.readSources(a)
		s.lggr.Debugw("Loaded artifact", "type", t, "layout", c.layout, "path", c.path)

		return a, nil
	}

	return nil, fmt.Errorf("%w: %s under %s", ErrArtifactNotFound, t, s.root)
}

// Parse decodes an artifact of the given layout.
func Parse(t contracts.Type, layout Layout, data []byte) (*Artifact, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("artifact is not valid JSON")
	}

	a := &Artifact{Type: t, Layout: layout, Sources: map[string]string{}}

	var bytecode gjson.Result
	switch layout {
	case LayoutBrownie:
		bytecode = gjson.GetBytes(data, "bytecode")
		a.SourcePath = gjson.GetBytes(data, "sourcePath").String()
		a.Source = gjson.GetBytes(data, "source").String()
		a.CompilerVersion = gjson.GetBytes(data, "compiler.version").String()
		a.EVMVersion = gjson.GetBytes(data, "compiler.evm_version").String()
		a.Optimizer = Optimizer{
			Enabled: gjson.GetBytes(data, "compiler.optimizer.enabled").Bool(),
			Runs:    gjson.GetBytes(data, "compiler.optimizer.runs").Int(),
		}
		gjson.GetBytes(data, "allSourcePaths").ForEach(func(_, path gjson.Result) bool {
			a.Sources[path.String()] = ""
			return true
		})
		if a.SourcePath != "" {
			a.Sources[a.SourcePath] = a.Source
		}
	case LayoutFoundry:
		bytecode = gjson.GetBytes(data, "bytecode.object")
		a.CompilerVersion = gjson.GetBytes(data, "metadata.compiler.version").String()
		a.EVMVersion = gjson.GetBytes(data, "metadata.settings.evmVersion").String()
		a.Optimizer = Optimizer{
			Enabled: gjson.GetBytes(data, "metadata.settings.optimizer.enabled").Bool(),
			Runs:    gjson.GetBytes(data, "metadata.settings.optimizer.runs").Int(),
		}
		gjson.GetBytes(data, "metadata.settings.compilationTarget").ForEach(func(path, _ gjson.Result) bool {
			a.SourcePath = path.String()
			return false
		})
		for _, r := range gjson.GetBytes(data, "metadata.settings.remappings").Array() {
			a.Remappings = append(a.Remappings, r.String())
		}
		gjson.GetBytes(data, "metadata.sources").ForEach(func(path, unit gjson.Result) bool {
			a.Sources[path.String()] = unit.Get("content").String()
			return true
		})
		a.Source = a.Sources[a.SourcePath]
	default:
		return nil, fmt.Errorf("unknown layout %q", layout)
	}

	code, err := decodeBytecode(bytecode.String())
	if err != nil {
		return nil, err
	}
	a.Bytecode = code

	if err := a.loadABI(gjson.GetBytes(data, "abi")); err != nil {
		return nil, err
	}

	return a, nil
}

// loadABI parses the artifact ABI, falling back to the embedded interface ABI of the type when the
// artifact has none.
func (a *Artifact) loadABI(raw gjson.Result) error {
	abiJSON := raw.Raw
	if !raw.IsArray() || len(raw.Array()) == 0 {
		embedded, err := contracts.ABIJSON(a.Type)
		if err != nil {
			return fmt.Errorf("artifact has no ABI: %w", err)
		}
		abiJSON = string(embedded)
	}

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return fmt.Errorf("failed to parse ABI: %w", err)
	}
	a.ABI = &parsed
	a.ABIJSON = abiJSON

	return nil
}

func decodeBytecode(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return nil, errors.New("artifact has no bytecode")
	}
	if strings.Contains(s, "__") {
		return nil, errors.New("artifact bytecode has unlinked libraries")
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}

	code, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}

	return code, nil
}
