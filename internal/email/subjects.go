package email

const (
	subjectWelcome            = "Votre compte Portail Chantier est prêt"
	subjectAccountSuspended   = "Votre compte a été suspendu"
	subjectAccountReactivated = "Votre compte a été réactivé"
)
