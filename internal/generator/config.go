package generator

import "time"

// Config drives the synthetic ledger generator. InconsistentChance is the
// share of extra sub-affiliates written with a broken parent reference, so
// reports have something to flag.
type Config struct {
	NumMainAffiliates       int
	MaxSubsPerMain          int
	CommissionsPerAffiliate int
	Months                  int
	RefundChance            float64
	ReversedChance          float64
	ParentShareChance       float64
	InconsistentChance      float64
	Seed                    int64
	Now                     time.Time
}

// DefaultConfig returns a dataset size that keeps a local dashboard responsive.
func DefaultConfig() Config {
	return Config{
		NumMainAffiliates:       200,
		MaxSubsPerMain:          5,
		CommissionsPerAffiliate: 40,
		Months:                  12,
		RefundChance:            0.08,
		ReversedChance:          0.03,
		ParentShareChance:       0.5,
		InconsistentChance:      0.01,
		Seed:                    42,
	}
}
