package actor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRotateMode_FiveThinksThenHousekeepingThenReflectionThenThink(t *testing.T) {
	mode, counter := ModeThink, 0
	var seen []Mode
	for i := 0; i < 7; i++ {
		seen = append(seen, mode)
		mode, counter = RotateMode(mode, counter)
	}
	assert.Equal(t, []Mode{
		ModeThink, ModeThink, ModeThink, ModeThink, ModeThink,
		ModeHousekeeping, ModeReflection,
	}, seen)
	assert.Equal(t, ModeThink, mode)
	assert.Equal(t, 0, counter)
}

func TestRotateMode_ResetsCounterOnEachTransition(t *testing.T) {
	mode, counter := ModeHousekeeping, 3
	mode, counter = RotateMode(mode, counter)
	assert.Equal(t, ModeReflection, mode)
	assert.Equal(t, 0, counter)
}
