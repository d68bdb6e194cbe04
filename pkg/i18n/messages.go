package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// The English literals double as catalog keys, so the phrase helpers below
// and the translation table must use them verbatim.
const (
	keySubject      = "Password reset on %s"
	keyGreeting     = "Hello %s,"
	keyIntro        = "You're receiving this e-mail because you requested a password reset for your user account at %s."
	keyActionPrompt = "Please go to the following page and choose a new password:"
	keyButtonLabel  = "Reset my password"
	keyValidity     = "For your security, this link expires in %d hours."
	keyIgnoreNote   = "If you didn't request this change, you can disregard this email. Your password will not be changed."
	keySignOff      = "The %s Team"
)

func init() {
	translations := []struct {
		tag     language.Tag
		key     string
		message string
	}{
		{language.German, keySubject, "Zurücksetzen des Passworts auf %s"},
		{language.German, keyGreeting, "Hallo %s,"},
		{language.German, keyIntro, "Sie erhalten diese E-Mail, weil für Ihr Benutzerkonto bei %s ein Zurücksetzen des Passworts angefordert wurde."},
		{language.German, keyActionPrompt, "Bitte öffnen Sie die folgende Seite und wählen Sie ein neues Passwort:"},
		{language.German, keyButtonLabel, "Passwort zurücksetzen"},
		{language.German, keyValidity, "Aus Sicherheitsgründen läuft dieser Link in %d Stunden ab."},
		{language.German, keyIgnoreNote, "Wenn Sie diese Änderung nicht angefordert haben, können Sie diese E-Mail ignorieren. Ihr Passwort wird nicht geändert."},
		{language.German, keySignOff, "Ihr %s Team"},

		{language.Spanish, keySubject, "Restablecimiento de contraseña en %s"},
		{language.Spanish, keyGreeting, "Hola %s:"},
		{language.Spanish, keyIntro, "Recibes este correo electrónico porque se solicitó un restablecimiento de contraseña para tu cuenta en %s."},
		{language.Spanish, keyActionPrompt, "Visita la siguiente página y elige una nueva contraseña:"},
		{language.Spanish, keyButtonLabel, "Restablecer mi contraseña"},
		{language.Spanish, keyValidity, "Por seguridad, este enlace caduca en %d horas."},
		{language.Spanish, keyIgnoreNote, "Si no solicitaste este cambio, puedes ignorar este correo. Tu contraseña no se modificará."},
		{language.Spanish, keySignOff, "El equipo de %s"},

		{language.French, keySubject, "Réinitialisation du mot de passe sur %s"},
		{language.French, keyGreeting, "Bonjour %s,"},
		{language.French, keyIntro, "Vous recevez cet e-mail car une réinitialisation du mot de passe a été demandée pour votre compte sur %s."},
		{language.French, keyActionPrompt, "Veuillez ouvrir la page suivante et choisir un nouveau mot de passe :"},
		{language.French, keyButtonLabel, "Réinitialiser mon mot de passe"},
		{language.French, keyValidity, "Pour votre sécurité, ce lien expire dans %d heures."},
		{language.French, keyIgnoreNote, "Si vous n'êtes pas à l'origine de cette demande, vous pouvez ignorer cet e-mail. Votre mot de passe ne sera pas modifié."},
		{language.French, keySignOff, "L'équipe %s"},

		{language.Portuguese, keySubject, "Redefinição de senha em %s"},
		{language.Portuguese, keyGreeting, "Olá, %s,"},
		{language.Portuguese, keyIntro, "Você está recebendo este e-mail porque foi solicitada a redefinição da senha da sua conta em %s."},
		{language.Portuguese, keyActionPrompt, "Acesse a página a seguir e escolha uma nova senha:"},
		{language.Portuguese, keyButtonLabel, "Redefinir minha senha"},
		{language.Portuguese, keyValidity, "Por segurança, este link expira em %d horas."},
		{language.Portuguese, keyIgnoreNote, "Se você não solicitou esta alteração, ignore este e-mail. Sua senha não será alterada."},
		{language.Portuguese, keySignOff, "A equipe %s"},

		{language.Arabic, keySubject, "إعادة تعيين كلمة المرور على %s"},
		{language.Arabic, keyGreeting, "مرحباً %s،"},
		{language.Arabic, keyIntro, "تتلقى هذه الرسالة لأنه تم طلب إعادة تعيين كلمة المرور لحسابك على %s."},
		{language.Arabic, keyActionPrompt, "يرجى فتح الصفحة التالية واختيار كلمة مرور جديدة:"},
		{language.Arabic, keyButtonLabel, "إعادة تعيين كلمة مروري"},
		{language.Arabic, keyValidity, "لأسباب أمنية، تنتهي صلاحية هذا الرابط خلال %d ساعة."},
		{language.Arabic, keyIgnoreNote, "إذا لم تطلب هذا التغيير، يمكنك تجاهل هذه الرسالة. لن يتم تغيير كلمة المرور الخاصة بك."},
		{language.Arabic, keySignOff, "فريق %s"},
	}

	for _, t := range translations {
		if err := message.SetString(t.tag, t.key, t.message); err != nil {
			panic(err)
		}
	}
}

// Subject renders the notification subject line.
func Subject(p *message.Printer, platformName string) string {
	return p.Sprintf(keySubject, platformName)
}

// Greeting renders the salutation for the account's username.
func Greeting(p *message.Printer, username string) string {
	return p.Sprintf(keyGreeting, username)
}

// Intro explains why the recipient is getting the message.
func Intro(p *message.Printer, platformName string) string {
	return p.Sprintf(keyIntro, platformName)
}

// ActionPrompt asks the recipient to follow the reset link.
func ActionPrompt(p *message.Printer) string {
	return p.Sprintf(keyActionPrompt)
}

// ButtonLabel labels the reset link.
func ButtonLabel(p *message.Printer) string {
	return p.Sprintf(keyButtonLabel)
}

// Validity states how long the link stays usable.
func Validity(p *message.Printer, hours int) string {
	return p.Sprintf(keyValidity, hours)
}

// IgnoreNote tells uninvolved recipients the message is safe to ignore.
func IgnoreNote(p *message.Printer) string {
	return p.Sprintf(keyIgnoreNote)
}

// SignOff renders the closing line.
func SignOff(p *message.Printer, platformName string) string {
	return p.Sprintf(keySignOff, platformName)
}
