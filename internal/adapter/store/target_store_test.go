package store

import (
	"errors"
	"testing"

	"github.com/berfenger/chargectl/internal/core/domain"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const targetsPath = "/opt/modbus_api/targets.json"

func TestLoadTarget(t *testing.T) {

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, targetsPath, []byte(`{"target_soc": 85, "daily_charge_current": 40}`), 0644))

	s := NewFileTargetStore(fs, targetsPath)
	target, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DailyTarget{TargetSoC: 85, DailyChargeCurrent: 40}, *target)
}

func TestLoadTargetUnreadable(t *testing.T) {

	fs := afero.NewMemMapFs()
	s := NewFileTargetStore(fs, targetsPath)

	_, err := s.Load()
	assert.True(t, errors.Is(err, domain.ErrTargetUnreadable), "missing file")

	require.NoError(t, afero.WriteFile(fs, targetsPath, []byte(`{"target_soc": `), 0644))
	_, err = s.Load()
	assert.True(t, errors.Is(err, domain.ErrTargetUnreadable), "truncated json")

	require.NoError(t, afero.WriteFile(fs, targetsPath, []byte(`{"target_soc": -1, "daily_charge_current": 40}`), 0644))
	_, err = s.Load()
	assert.True(t, errors.Is(err, domain.ErrTargetUnreadable), "negative soc")

	require.NoError(t, afero.WriteFile(fs, targetsPath, []byte(`{"target_soc": 90, "daily_charge_current": -5}`), 0644))
	_, err = s.Load()
	assert.True(t, errors.Is(err, domain.ErrTargetUnreadable), "negative current")
}

func TestTargetAboveFull(t *testing.T) {

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/opt/modbus_api", 0755))
	require.NoError(t, afero.WriteFile(fs, targetsPath, []byte(`{"target_soc": 101, "daily_charge_current": 40}`), 0644))

	s := NewFileTargetStore(fs, targetsPath)
	target, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DailyTarget{TargetSoC: 101, DailyChargeCurrent: 40}, *target)

	require.NoError(t, s.Save(domain.DailyTarget{TargetSoC: 120, DailyChargeCurrent: 10}))
	target, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DailyTarget{TargetSoC: 120, DailyChargeCurrent: 10}, *target)
}

func TestSaveTargetReplacesFile(t *testing.T) {

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/opt/modbus_api", 0755))
	require.NoError(t, afero.WriteFile(fs, targetsPath, []byte(`{"target_soc": 85, "daily_charge_current": 40}`), 0644))

	s := NewFileTargetStore(fs, targetsPath)
	require.NoError(t, s.Save(domain.DailyTarget{TargetSoC: 85, DailyChargeCurrent: 10}))

	target, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 10, target.DailyChargeCurrent)

	// no temp files left behind
	entries, err := afero.ReadDir(fs, "/opt/modbus_api")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveTargetReadOnly(t *testing.T) {

	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	s := NewFileTargetStore(fs, targetsPath)
	assert.Error(t, s.Save(domain.DailyTarget{TargetSoC: 80}))
}
