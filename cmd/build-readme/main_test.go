package main

import (
	"testing"

	"github.com/keshon/disharmony/internal/bot"
	"github.com/keshon/disharmony/internal/commands"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	reg := bot.NewRegistry()
	reg.MustRegister(commands.Roll())
	reg.MustRegister(commands.Inbuilt(commands.Deps{Registry: reg})...)

	out, err := render("# Commands\n\n{{.CommandSections}}", reg.All(), "!")
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "### everyone\n\n* **`!roll <count>d<sides>`**")
	assert.Contains(t, s, "* **`!help [command]`**")
	assert.Contains(t, s, "### moderator\n\n* **`!stats`**")
	assert.Contains(t, s, "### admin\n\n* **`!prefix <new-prefix>`**")
	assert.NotContains(t, s, "### owner")
}

func TestRender_BadTemplate(t *testing.T) {
	_, err := render("{{.Nope", nil, "!")
	assert.Error(t, err)
}
