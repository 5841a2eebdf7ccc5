package model

// Level thresholds in points. The input is balance plus referral earnings.
var levelThresholds = []int{0, 50, 200, 500, 1500, 5000}

type Level struct {
	Number        int
	ProgressPct   int
	NextThreshold int
}

func LevelForEarned(earned int) Level {
	if earned < 0 {
		earned = 0
	}

	level := 1
	for i, threshold := range levelThresholds {
		if earned >= threshold {
			level = i + 1
		}
	}

	if level >= len(levelThresholds) {
		return Level{Number: level, ProgressPct: 100, NextThreshold: levelThresholds[len(levelThresholds)-1]}
	}

	floor := levelThresholds[level-1]
	next := levelThresholds[level]
	pct := (earned - floor) * 100 / (next - floor)

	return Level{Number: level, ProgressPct: pct, NextThreshold: next}
}
