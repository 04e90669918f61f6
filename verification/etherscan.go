// Package verification publishes contract sources to an Etherscan compatible block explorer.
package verification

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"

	"github.com/smartcontractkit/lottery-deployments/artifacts"
	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxPolls     = 20
)

var (
	// ErrVerificationFailed is returned when the explorer rejects the source.
	ErrVerificationFailed = errors.New("verification failed")
	// errPending marks a verification still queued at the explorer.
	errPending = errors.New("verification pending")
)

// Config configures an explorer Client.
type Config struct {
	// URL is the explorer API endpoint, e.g. https://api-sepolia.etherscan.io/api.
	URL    string
	APIKey string
	// Optional: ChainID is sent as the chainid parameter, used by multichain explorer endpoints.
	ChainID string
	// Optional: PollInterval between status checks. Defaults to DefaultPollInterval.
	PollInterval time.Duration
	// Optional: MaxPolls bounds the number of status checks. Defaults to DefaultMaxPolls.
	MaxPolls uint
	Logger   logger.Logger
}

func (c Config) validate() error {
	if c.URL == "" {
		return errors.New("block explorer URL is required")
	}
	if c.APIKey == "" {
		return errors.New("block explorer API key is required")
	}

	return nil
}

// Request is a standard JSON input verification request.
type Request struct {
	Address      common.Address
	ContractName string
	// SourcePath is the source unit defining ContractName.
	SourcePath string
	// Sources maps every source unit compiled with the contract to its text.
	Sources          map[string]string
	Remappings       []string
	CompilerVersion  string
	EVMVersion       string
	OptimizationUsed bool
	Runs             int64
	// ConstructorArgs are the ABI-encoded constructor arguments.
	ConstructorArgs []byte
	// LicenseType is the explorer's license code. 3 is MIT.
	LicenseType int
}

// RequestFromArtifact builds a request for a contract deployed from the artifact. Every source
// unit of the artifact must have been found.
func RequestFromArtifact(a *artifacts.Artifact, address common.Address, ctorArgs []byte) (Request, error) {
	if missing := a.MissingSources(); len(missing) > 0 {
		return Request{}, fmt.Errorf("sources of %s not found: %s", a.Type, strings.Join(missing, ", "))
	}

	sourcePath, sources := a.SourcePath, maps.Clone(a.Sources)
	if len(sources) == 0 && a.Source != "" {
		sourcePath = cmp.Or(sourcePath, string(a.Type)+".sol")
		sources = map[string]string{sourcePath: a.Source}
	}

	return Request{
		Address:          address,
		ContractName:     string(a.Type),
		SourcePath:       sourcePath,
		Sources:          sources,
		Remappings:       slices.Clone(a.Remappings),
		CompilerVersion:  a.CompilerVersion,
		EVMVersion:       a.EVMVersion,
		OptimizationUsed: a.Optimizer.Enabled,
		Runs:             a.Optimizer.Runs,
		ConstructorArgs:  ctorArgs,
		LicenseType:      3,
	}, nil
}

func (r Request) validate() error {
	if r.Address == (common.Address{}) {
		return errors.New("contract address is required")
	}
	if len(r.Sources) == 0 {
		return fmt.Errorf("no source recorded for %s", r.ContractName)
	}
	if _, ok := r.Sources[r.SourcePath]; !ok {
		return fmt.Errorf("source unit %q of %s is not among its sources", r.SourcePath, r.ContractName)
	}
	if r.CompilerVersion == "" {
		return fmt.Errorf("no compiler version recorded for %s", r.ContractName)
	}

	return nil
}

type standardInput struct {
	Language string                    `json:"language"`
	Sources  map[string]standardSource `json:"sources"`
	Settings standardSettings          `json:"settings"`
}

type standardSource struct {
	Content string `json:"content"`
}

type standardSettings struct {
	Optimizer struct {
		Enabled bool  `json:"enabled"`
		Runs    int64 `json:"runs"`
	} `json:"optimizer"`
	EVMVersion string   `json:"evmVersion,omitempty"`
	Remappings []string `json:"remappings,omitempty"`
}

// StandardInput returns the solc standard JSON input compiling the request's sources.
func (r Request) StandardInput() ([]byte, error) {
	in := standardInput{
		Language: "Solidity",
		Sources:  make(map[string]standardSource, len(r.Sources)),
	}
	for path, text := range r.Sources {
		in.Sources[path] = standardSource{Content: text}
	}
	in.Settings.Optimizer.Enabled = r.OptimizationUsed
	in.Settings.Optimizer.Runs = r.Runs
	in.Settings.EVMVersion = r.EVMVersion
	in.Settings.Remappings = r.Remappings

	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to encode standard JSON input: %w", err)
	}

	return data, nil
}

// Result is the outcome of a verification.
type Result struct {
	GUID            string
	Status          string
	AlreadyVerified bool
}

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Client talks to an Etherscan compatible API.
type Client struct {
	cfg    Config
	client *resty.Client
	lggr   logger.Logger
}

// NewClient returns a Client for the explorer.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid block explorer config: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPolls == 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	lggr := cfg.Logger
	if lggr == nil {
		lggr = logger.Nop()
	}

	return &Client{
		cfg:    cfg,
		client: resty.New().SetHeader("Accept", "application/json"),
		lggr:   lggr.Named("verification"),
	}, nil
}

// Verify submits the source and waits until the explorer accepts or rejects it.
func (c *Client) Verify(ctx context.Context, req Request) (Result, error) {
	if err := req.validate(); err != nil {
		return Result{}, err
	}

	guid, err := c.submit(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if guid == "" {
		c.lggr.Infow("Source already verified", "address", req.Address.Hex())
		return Result{AlreadyVerified: true, Status: "Already Verified"}, nil
	}

	c.lggr.Infow("Submitted source for verification", "address", req.Address.Hex(), "guid", guid)

	status, err := retry.DoWithData(
		func() (string, error) { return c.checkStatus(ctx, guid) },
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxPolls),
		retry.Delay(c.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errPending) }),
		retry.OnRetry(func(n uint, err error) {
			c.lggr.Debugw("Verification pending", "guid", guid, "attempt", n+1)
		}),
	)
	if err != nil {
		return Result{GUID: guid}, err
	}

	c.lggr.Infow("Source verified", "address", req.Address.Hex(), "status", status)

	return Result{GUID: guid, Status: status, AlreadyVerified: isAlreadyVerified(status)}, nil
}

// submit posts the sources. An empty guid means the contract was verified before.
func (c *Client) submit(ctx context.Context, req Request) (string, error) {
	input, err := req.StandardInput()
	if err != nil {
		return "", err
	}

	optimization := "0"
	if req.OptimizationUsed {
		optimization = "1"
	}

	form := map[string]string{
		"apikey":                c.cfg.APIKey,
		"module":                "contract",
		"action":                "verifysourcecode",
		"contractaddress":       req.Address.Hex(),
		"sourceCode":            string(input),
		"codeformat":            "solidity-standard-json-input",
		"contractname":          req.SourcePath + ":" + req.ContractName,
		"compilerversion":       compilerVersion(req.CompilerVersion),
		"optimizationUsed":      optimization,
		"runs":                  strconv.FormatInt(req.Runs, 10),
		"constructorArguements": strings.TrimPrefix(hexutil.Encode(req.ConstructorArgs), "0x"),
		"licenseType":           strconv.Itoa(req.LicenseType),
	}

	r := c.client.R().SetContext(ctx).SetFormData(form)
	if c.cfg.ChainID != "" {
		r.SetQueryParam("chainid", c.cfg.ChainID)
	}

	var out apiResponse
	resp, err := r.SetResult(&out).Post(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("failed to submit verification: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("failed to submit verification: http status %d", resp.StatusCode())
	}

	if out.Status != "1" {
		if isAlreadyVerified(out.Result) {
			return "", nil
		}

		return "", fmt.Errorf("%w: %s: %s", ErrVerificationFailed, out.Message, out.Result)
	}

	return out.Result, nil
}

func (c *Client) checkStatus(ctx context.Context, guid string) (string, error) {
	params := map[string]string{
		"apikey": c.cfg.APIKey,
		"module": "contract",
		"action": "checkverifystatus",
		"guid":   guid,
	}
	if c.cfg.ChainID != "" {
		params["chainid"] = c.cfg.ChainID
	}

	var out apiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&out).
		Get(c.cfg.URL)
	if err != nil {
		return "", retry.Unrecoverable(fmt.Errorf("failed to check verification status: %w", err))
	}
	if resp.IsError() {
		return "", fmt.Errorf("failed to check verification status: http status %d", resp.StatusCode())
	}

	switch {
	case strings.Contains(strings.ToLower(out.Result), "pending"):
		return "", fmt.Errorf("%w: %s", errPending, out.Result)
	case out.Status == "1", isAlreadyVerified(out.Result):
		return out.Result, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrVerificationFailed, out.Result)
	}
}

func isAlreadyVerified(s string) bool {
	return strings.Contains(strings.ToLower(s), "already verified")
}

// compilerVersion formats a solc version the way the explorer expects: v0.6.6+commit.6c089d02.
func compilerVersion(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}

	return "v" + v
}
