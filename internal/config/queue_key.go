package config

type QueueKeyStruct struct {
	CertificatesQueue  string
	NotificationsQueue string
	SkillScoresQueue   string
}

var QueueKey = &QueueKeyStruct{
	CertificatesQueue:  "certificates_queue",
	NotificationsQueue: "notifications_queue",
	SkillScoresQueue:   "skill_scores_queue",
}
