package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eduaudit/internal/errors"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"check"}, "check"},
		{[]string{"report"}, "report"},
		{[]string{"credentials", "save"}, "save"},
		{[]string{"credentials", "clear"}, "clear"},
		{[]string{"credentials", "status"}, "status"},
		{[]string{"serve"}, "serve"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			cmd, _, err := root.Find(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd.Name())
		})
	}
}

func TestCheckFlags_Request(t *testing.T) {
	t.Run("unset flags stay nil", func(t *testing.T) {
		f := new(checkFlags)
		cmd := checkCommand(f)
		require.NoError(t, cmd.ParseFlags([]string{"--class-from", "5", "--class-to", "9"}))
		req := f.request(cmd)

		assert.Equal(t, 5, req.ClassFrom)
		assert.Equal(t, 9, req.ClassTo)
		assert.Nil(t, req.MinFor5)
		assert.Nil(t, req.CheckMeta)
		assert.Nil(t, req.LessonPercent)
	})

	t.Run("explicit false is kept", func(t *testing.T) {
		f := new(checkFlags)
		cmd := checkCommand(f)
		require.NoError(t, cmd.ParseFlags([]string{"--meta=false", "--double-two", "--min-for-5", "4.6", "--allowed-not-row", "н,б"}))
		req := f.request(cmd)

		require.NotNil(t, req.CheckMeta)
		assert.False(t, *req.CheckMeta)
		require.NotNil(t, req.CheckDoubleTwo)
		assert.True(t, *req.CheckDoubleTwo)
		require.NotNil(t, req.MinFor5)
		assert.InDelta(t, 4.6, *req.MinFor5, 1e-9)
		require.NotNil(t, req.AllowedNotRow)
		assert.Equal(t, "н,б", *req.AllowedNotRow)
		assert.Nil(t, req.MinFor4)
	})
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, apperrors.MsgNetwork, errorText(apperrors.NewNetworkError("dial", errors.New("refused"))))
	assert.Equal(t, `unknown flag: --nope`, errorText(errors.New("unknown flag: --nope")))
}

func TestCheckCommand_FillFlagUsage(t *testing.T) {
	fl := newCheckCommand().Flags()

	tests := []struct {
		flag string
		want string
	}{
		{"lesson-percent", "students"},
		{"term-percent", "lessons"},
		{"lessons-fill", "each lesson"},
		{"students-fill", "each student"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := fl.Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Contains(t, f.Usage, tt.want)
		})
	}
}
