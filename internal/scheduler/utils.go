package scheduler

import "strings"

// slotDistance 为两个时间段在时间段序列中的下标之差（不解析具体的钟点）
func slotDistance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func inFarBuilding(room string, buildings []string) bool {
	for _, b := range buildings {
		if strings.Contains(room, b) {
			return true
		}
	}
	return false
}
