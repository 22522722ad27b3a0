package allowlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommandRefusesUnknown(t *testing.T) {
	_, err := ValidateCommand("rm", []string{"-rf", "/"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in the allowlist")
}

func TestValidateSimpleCommands(t *testing.T) {
	for _, name := range []string{"hostname", "uptime"} {
		spec, err := ValidateCommand(name, nil)
		require.NoError(t, err)
		assert.Equal(t, name, spec.Executable)

		_, err = ValidateCommand(name, []string{"extra"})
		assert.Error(t, err)
	}
}

func TestValidateCatPaths(t *testing.T) {
	cases := map[string]struct {
		path string
		ok   bool
	}{
		"shared file":     {path: "shared/notes.txt", ok: true},
		"shared nested":   {path: "shared/logs/today.log", ok: true},
		"absolute":        {path: "/etc/passwd", ok: false},
		"traversal":       {path: "shared/../secrets.txt", ok: false},
		"outside shared":  {path: "main.go", ok: false},
		"prefix lookalik": {path: "sharedstuff/file", ok: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateCommand("cat", []string{tc.path})
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCatRequiresPath(t *testing.T) {
	_, err := ValidateCommand("cat", nil)
	assert.Error(t, err)
}

func TestListAllowedIsSorted(t *testing.T) {
	names := ListAllowed()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
	assert.True(t, IsAllowed(names[0]))
	assert.False(t, IsAllowed("reboot"))
}
