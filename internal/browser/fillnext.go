package browser

import (
	"fmt"
	"math/rand"

	"webuser/internal/entity"
	"webuser/internal/ports"
)

const (
	keyTab       = "Tab"
	keySpace     = "Space"
	keyArrowDown = "ArrowDown"
)

// fillNext tabs from the currently focused element through successive
// form fields, consuming one entry per field. With clickChance > 0
// each field may additionally receive a Space press, which web forms
// read as a click on checkboxes and radio buttons.
func fillNext(kb ports.Keyboard, entries []entity.FormEntry, clickChance float64, rng *rand.Rand, pace *pacing) error {
	for i, entry := range entries {
		if err := kb.Press(keyTab); err != nil {
			return fmt.Errorf("tab to field %d: %w", i, err)
		}

		pace.chill(pace.afterKey)

		if clickChance > 0 && rng.Float64() < clickChance {
			if err := kb.Press(keySpace); err != nil {
				return fmt.Errorf("click field %d: %w", i, err)
			}

			pace.chill(pace.afterKey)
		}

		if err := fillEntry(kb, entry, rng, pace); err != nil {
			return fmt.Errorf("fill field %d: %w", i, err)
		}

		pace.chill(pace.afterField)
	}

	return nil
}

func fillEntry(kb ports.Keyboard, entry entity.FormEntry, rng *rand.Rand, pace *pacing) error {
	switch {
	case entry.Skip:
		return nil

	case entry.ArrowDown > 0 || entry.ArrowDownMax > 0:
		times := entry.ArrowDown
		if entry.ArrowDownMax > entry.ArrowDown {
			times = entry.ArrowDown + rng.Intn(entry.ArrowDownMax-entry.ArrowDown+1)
		}

		for i := 0; i < times; i++ {
			if err := kb.Press(keyArrowDown); err != nil {
				return err
			}

			pace.chill(pace.afterKey)
		}

		return nil

	default:
		if !pace.perKey {
			return kb.Type(entry.Text)
		}

		for _, r := range entry.Text {
			if err := kb.Type(string(r)); err != nil {
				return err
			}

			pace.chill(pace.afterKey)
		}

		return nil
	}
}
