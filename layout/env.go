package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envPrefix marks the environment keys this package understands. The rest
// of the key names the field, with dots replaced by underscores, e.g.
// ICEBOX_OFFSET_MMVAD_FIRSTPROTOTYPEPTE=0x48.
const envPrefix = "ICEBOX_OFFSET_"

var envFieldNames = map[string]string{
	"MMVAD_FIRSTPROTOTYPEPTE": "MMVAD.FirstPrototypePte",
}

// ApplyEnvFile overlays offsets from a dotenv file onto the table.
// Unknown field names are rejected rather than silently dropped, since a
// typo here would corrupt every descriptor read.
func (t *Table) ApplyEnvFile(path string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		return err
	}

	return t.applyEnv(env)
}

func (t *Table) applyEnv(env map[string]string) error {
	for key, value := range env {
		if !strings.HasPrefix(key, envPrefix) {
			continue
		}

		field, ok := envFieldNames[strings.TrimPrefix(key, envPrefix)]
		if !ok {
			return fmt.Errorf("unknown field offset key %s", key)
		}

		off, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}

		t.Set(field, off)
	}

	return nil
}
