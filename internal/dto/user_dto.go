package dto

// QuizStatsResponse summarises a user's quiz attempts. Accuracy is a whole percentage.
type QuizStatsResponse struct {
	TotalQuizzes      int `json:"total_quizzes"`
	CorrectQuizzes    int `json:"correct_quizzes"`
	Accuracy          int `json:"accuracy"`
	TotalPointsEarned int `json:"total_points_earned"`
}

// MissionStatsResponse summarises every activity a user has recorded.
type MissionStatsResponse struct {
	TotalMissions     int `json:"total_missions"`
	CompletedMissions int `json:"completed_missions"`
	CompletionRate    int `json:"completion_rate"`
	TotalPointsEarned int `json:"total_points_earned"`
}
