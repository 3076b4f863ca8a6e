package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := Default()

	t.Run("tax years", func(t *testing.T) {
		assert.Equal(t, []int{2023, 2024, 2025}, table.TaxYears(Turkey))
		assert.Equal(t, []int{2023, 2024, 2025}, table.TaxYears(UnitedStates))

		ty, err := table.TaxYear(UnitedStates, 2024)
		require.NoError(t, err)
		assert.Equal(t, 14600.0, ty.StandardDeduction)
		assert.Equal(t, "USD", ty.Currency)
		assert.Len(t, ty.Brackets, 7)
		assert.Equal(t, 0.0, ty.Brackets[6].UpTo)
	})

	t.Run("missing tax year", func(t *testing.T) {
		_, err := table.TaxYear(Turkey, 1999)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("inflation", func(t *testing.T) {
		r, err := table.Inflation(Turkey, 2023)
		require.NoError(t, err)
		assert.Equal(t, 64.77, r)

		_, err = table.Inflation(UnitedStates, 1800)
		assert.ErrorIs(t, err, ErrNoData)

		years := table.InflationYears(UnitedStates)
		assert.Equal(t, 2005, years[0])
		assert.Equal(t, 2024, years[len(years)-1])
		assert.Equal(t, "TÜİK TÜFE", table.InflationSource(Turkey))
	})

	t.Run("bes", func(t *testing.T) {
		b, err := table.BES(2024)
		require.NoError(t, err)
		assert.InDelta(t, 72009.0, b.AnnualCap(), 0.001)
		assert.Equal(t, 2025, table.LatestBES().Year)
	})

	t.Run("kdv", func(t *testing.T) {
		assert.True(t, table.IsKDVRate(20))
		assert.False(t, table.IsKDVRate(18))
		assert.Equal(t, 20.0, table.KDV.Default)
		assert.Equal(t, []float64{1, 10, 20}, table.KDVRates())
	})

	t.Run("convenience lookups", func(t *testing.T) {
		brackets, err := table.TaxBrackets(Turkey, 2024)
		require.NoError(t, err)
		assert.Len(t, brackets, 5)

		rate, err := table.BESStateRate(2024)
		require.NoError(t, err)
		assert.Equal(t, 30.0, rate)

		_, err = table.BESCap(1990)
		assert.ErrorIs(t, err, ErrNoData)

		years := table.Years(UnitedStates)
		assert.Equal(t, 2005, years[0])
		assert.Equal(t, 2025, years[len(years)-1])
	})
}

func TestParseRejectsBadBrackets(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "bounded last bracket",
			doc: `[[tax]]
country = "tr"
year = 2020
brackets = [{ up_to = 100, rate = 10 }]`,
		},
		{
			name: "descending limits",
			doc: `[[tax]]
country = "tr"
year = 2020
brackets = [{ up_to = 100, rate = 10 }, { up_to = 50, rate = 20 }, { rate = 30 }]`,
		},
		{
			name: "non-numeric inflation year",
			doc: `[[inflation]]
country = "tr"
rates = { abc = 1.0 }`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
