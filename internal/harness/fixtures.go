package harness

import (
	"os"
	"path/filepath"
)

// Fixtures holds the scratch-directory file paths for one run.
// Derived outputs are left in place for manual inspection.
type Fixtures struct {
	Dir            string
	Input          string
	WatermarkedURL string
	WatermarkedSDK string
}

// PrepareFixtures creates the scratch directory and synthesizes the
// input WAV if it does not already exist.
func PrepareFixtures(dir string) (Fixtures, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Fixtures{}, err
	}

	fx := Fixtures{
		Dir:            dir,
		Input:          filepath.Join(dir, "test_input.wav"),
		WatermarkedURL: filepath.Join(dir, "watermarked_url.wav"),
		WatermarkedSDK: filepath.Join(dir, "watermarked_sdk.wav"),
	}

	if _, err := os.Stat(fx.Input); os.IsNotExist(err) {
		if err := WriteRampWAV(fx.Input); err != nil {
			return Fixtures{}, err
		}
	}

	return fx, nil
}
