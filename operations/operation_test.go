package operations

import (
	"context"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/smartcontractkit/lottery-deployments/pkg/logger"
)

type OpDeps struct{}

type EnterInput struct {
	Player   string `json:"player"`
	ExtraWei int64  `json:"extra_wei"`
}

func enterHandler(b Bundle, deps OpDeps, input EnterInput) (int64, error) {
	return 50 + input.ExtraWei, nil
}

func Test_NewOperation(t *testing.T) {
	t.Parallel()

	version := semver.MustParse("1.0.0")
	op := NewOperation("enter-lottery", version, "Enter the lottery", enterHandler)

	assert.Equal(t, "enter-lottery", op.ID())
	assert.Equal(t, "1.0.0", op.Version())
	assert.Equal(t, "Enter the lottery", op.Description())
	assert.Equal(t, Definition{ID: "enter-lottery", Version: version, Description: "Enter the lottery"}, op.Def())

	res, err := op.handler(Bundle{}, OpDeps{}, EnterInput{ExtraWei: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(150), res)
}

func Test_Operation_Execute(t *testing.T) {
	t.Parallel()

	version := semver.MustParse("1.2.0")
	lggr, observedLog := logger.TestObserved(t, zapcore.InfoLevel)

	op := NewOperation("enter-lottery", version, "Enter the lottery", enterHandler)
	b := NewBundle(context.Background, lggr, nil)

	output, err := op.execute(b, OpDeps{}, EnterInput{Player: "0x01", ExtraWei: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(51), output)

	require.Equal(t, 1, observedLog.Len())
	entry := observedLog.All()[0]
	assert.Equal(t, "Executing operation", entry.Message)
	assert.Equal(t, "enter-lottery", entry.ContextMap()["id"])
	assert.Equal(t, "Enter the lottery", entry.ContextMap()["description"])
}

func Test_Operation_WithEmptyInput(t *testing.T) {
	t.Parallel()

	op := NewOperation("start-lottery", semver.MustParse("1.0.0"), "Start the lottery",
		func(b Bundle, deps OpDeps, _ EmptyInput) (string, error) {
			return "0xabc", nil
		})

	out, err := op.execute(NewBundle(context.Background, logger.Test(t), nil), OpDeps{}, EmptyInput{})
	require.NoError(t, err)
	assert.Equal(t, "0xabc", out)
}

func Test_Operation_AsUntyped(t *testing.T) {
	t.Parallel()

	typedOp := NewOperation("enter-lottery", semver.MustParse("1.0.0"), "Enter the lottery", enterHandler)
	untypedOp := typedOp.AsUntyped()
	b := NewBundle(t.Context, logger.Test(t), nil)

	assert.Equal(t, typedOp.Def(), untypedOp.Def())

	tests := []struct {
		name       string
		deps       any
		input      any
		wantResult any
		wantErr    string
	}{
		{
			name:       "valid input and dependencies",
			deps:       OpDeps{},
			input:      EnterInput{ExtraWei: 7},
			wantResult: int64(57),
		},
		{
			name:       "nil input and dependencies use zero values",
			wantResult: int64(50),
		},
		{
			name:    "invalid input type",
			deps:    OpDeps{},
			input:   "not an input",
			wantErr: "input type mismatch",
		},
		{
			name:    "invalid dependencies type",
			deps:    42,
			input:   EnterInput{},
			wantErr: "dependencies type mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := untypedOp.execute(b, tt.deps, tt.input)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantResult, got)
		})
	}
}

func Test_NewSequence(t *testing.T) {
	t.Parallel()

	version := semver.MustParse("2.0.0")
	seq := NewSequence("lottery-run", version, "Deploy, start, enter and end",
		func(b Bundle, deps OpDeps, input EmptyInput) (string, error) {
			return "done", nil
		})

	assert.Equal(t, "lottery-run", seq.ID())
	assert.Equal(t, "2.0.0", seq.Version())
	assert.Equal(t, "Deploy, start, enter and end", seq.Description())
	assert.Equal(t, version, seq.Def().Version)
}
