package cache

import (
	"fmt"
	"sort"
)

// Stats is a point-in-time snapshot. Size is the live mapping length.
type Stats struct {
	Hits     int64
	Misses   int64
	Size     int
	Accesses uint64
}

func (s Stats) String() string {
	return fmt.Sprintf("hits=%d misses=%d size=%d", s.Hits, s.Misses, s.Size)
}

/*
AuditReport reconciles the counters against the hit and miss logs.

  - Hits must equal len(hit log) and Misses must equal len(miss log);
    anything else is a bookkeeping bug and Err() reports it.
  - Untouched lists stored keys that were never looked up. Keys written
    without a preceding lookup (sub-span memoization, pumped entries) land
    here legitimately, so it is informational.
  - Learned counts keys that missed at least once and are now stored.
*/
type AuditReport struct {
	Hits            int64
	Misses          int64
	HitLogLen       int
	MissLogLen      int
	DistinctLookups int
	StoredKeys      int
	Learned         int
	Untouched       []string
}

func (a AuditReport) Err() error {
	if a.Hits != int64(a.HitLogLen) || a.Misses != int64(a.MissLogLen) {
		return &CacheError{
			Message: fmt.Sprintf(
				"hits=%d hit_log=%d misses=%d miss_log=%d",
				a.Hits, a.HitLogLen, a.Misses, a.MissLogLen,
			),
			Cause: ErrCauseAuditMismatch,
		}
	}
	return nil
}

func buildAudit(data map[string]string, hits, misses int64, hitLog, missLog []string) AuditReport {
	looked := make(map[string]struct{}, len(hitLog)+len(missLog))
	for _, k := range hitLog {
		looked[k] = struct{}{}
	}
	missed := make(map[string]struct{}, len(missLog))
	for _, k := range missLog {
		looked[k] = struct{}{}
		missed[k] = struct{}{}
	}
	learned := 0
	for k := range missed {
		if _, stored := data[k]; stored {
			learned++
		}
	}

	var untouched []string
	for k := range data {
		if _, ok := looked[k]; !ok {
			untouched = append(untouched, k)
		}
	}
	sort.Strings(untouched)

	return AuditReport{
		Hits:            hits,
		Misses:          misses,
		HitLogLen:       len(hitLog),
		MissLogLen:      len(missLog),
		DistinctLookups: len(looked),
		StoredKeys:      len(data),
		Learned:         learned,
		Untouched:       untouched,
	}
}
