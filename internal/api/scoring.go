package api

import "math/rand"

// interestPool is the fixed vocabulary clients_interests samples from.
var interestPool = []string{
	"cars", "pets", "travel", "hi-tech", "sport", "music",
	"books", "tv", "cinema", "geek", "otus",
}

// GetScore computes the additive online score: phone and email weigh 1.5
// each, a birthday with a known gender 1.5, a full name 0.5.
// GetScore 计算累加的在线评分。
func GetScore(phone, email, birthday string, gender int, firstName, lastName string) float64 {
	var score float64
	if phone != "" {
		score += 1.5
	}
	if email != "" {
		score += 1.5
	}
	if birthday != "" && gender != GenderUnknown {
		score += 1.5
	}
	if firstName != "" && lastName != "" {
		score += 0.5
	}
	return score
}

// GetInterests samples two distinct interests from the pool.
func GetInterests() []string {
	i := rand.Intn(len(interestPool))
	j := rand.Intn(len(interestPool) - 1)
	if j >= i {
		j++
	}
	return []string{interestPool[i], interestPool[j]}
}
