package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiral-chawra/Protofito/pkg/exercise"
	"github.com/hiral-chawra/Protofito/pkg/reps"
)

func movementFor(t *testing.T, args ...string) (exercise.Movement, error) {
	t.Helper()
	cmd := newCommand()
	require.NoError(t, cmd.ParseFlags(args))

	var opts options
	opts.movement, _ = cmd.Flags().GetString("movement")
	opts.down, _ = cmd.Flags().GetFloat64("down")
	opts.up, _ = cmd.Flags().GetFloat64("up")
	return opts.resolveMovement(cmd.Flags())
}

func TestResolveMovementDefaults(t *testing.T) {
	m, err := movementFor(t)
	require.NoError(t, err)
	assert.Equal(t, exercise.PushUp, m.Name)
	assert.Equal(t, reps.DefaultThresholds(), m.Thresholds)
}

func TestResolveMovementExplicitZeroDown(t *testing.T) {
	m, err := movementFor(t, "--down", "0")
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Thresholds.DownMaxAngle)
	assert.Equal(t, reps.DefaultUpMinAngle, m.Thresholds.UpMinAngle)
}

func TestResolveMovementOverrides(t *testing.T) {
	m, err := movementFor(t, "--movement", exercise.Squat, "--up", "170")
	require.NoError(t, err)
	assert.Equal(t, exercise.Squat, m.Name)
	assert.Equal(t, 100.0, m.Thresholds.DownMaxAngle)
	assert.Equal(t, 170.0, m.Thresholds.UpMinAngle)
}

func TestResolveMovementRejectsInvertedThresholds(t *testing.T) {
	_, err := movementFor(t, "--down", "170", "--up", "100")
	assert.ErrorIs(t, err, reps.ErrInvalidConfiguration)
}

func TestResolveMovementUnknown(t *testing.T) {
	_, err := movementFor(t, "--movement", "burpee")
	assert.Error(t, err)
}

func TestCommandRequiresOneFile(t *testing.T) {
	cmd := newCommand()
	assert.Error(t, cmd.Args(cmd, nil))
	assert.NoError(t, cmd.Args(cmd, []string{"-"}))
}
