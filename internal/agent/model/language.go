package model

import (
	"fmt"
	"strings"
)

// Language is a BCP-47-ish code as sent by the widget.
type Language string

const (
	LangPortuguese Language = "pt-BR"
	LangEnglish    Language = "en"
	LangSpanish    Language = "es"
	LangItalian    Language = "it"

	DefaultLanguage = LangPortuguese
)

// ParseLanguage maps common spellings onto the supported codes.
// Unknown non-empty codes are kept so the model can still be told to use them.
func ParseLanguage(v string) Language {
	s := strings.ToLower(strings.TrimSpace(v))
	switch {
	case s == "":
		return DefaultLanguage
	case s == "pt" || strings.HasPrefix(s, "pt-") || strings.HasPrefix(s, "pt_"):
		return LangPortuguese
	case s == "en" || strings.HasPrefix(s, "en-") || strings.HasPrefix(s, "en_"):
		return LangEnglish
	case s == "es" || strings.HasPrefix(s, "es-") || strings.HasPrefix(s, "es_"):
		return LangSpanish
	case s == "it" || strings.HasPrefix(s, "it-") || strings.HasPrefix(s, "it_"):
		return LangItalian
	default:
		return Language(strings.TrimSpace(v))
	}
}

// Name is the English name used inside prompt directives.
func (l Language) Name() string {
	switch l {
	case LangPortuguese:
		return "Brazilian Portuguese"
	case LangEnglish:
		return "English"
	case LangSpanish:
		return "Spanish"
	case LangItalian:
		return "Italian"
	default:
		return string(l)
	}
}

// Localized holds one string per language.
type Localized map[Language]string

// For returns the entry for lang, falling back to the default language.
func (l Localized) For(lang Language) string {
	if s, ok := l[lang]; ok {
		return s
	}
	return l[DefaultLanguage]
}

var apologies = Localized{
	LangPortuguese: "Desculpe, o serviço está demorando muito para responder. Por favor, tente novamente mais tarde.",
	LangEnglish:    "Sorry, the service is taking too long to respond. Please try again later.",
	LangSpanish:    "Lo sentimos, el servicio está tardando demasiado en responder. Por favor, inténtalo de nuevo más tarde.",
	LangItalian:    "Spiacenti, il servizio sta impiegando troppo tempo a rispondere. Riprova più tardi.",
}

// Apology is the fixed reply used when generation fails.
func Apology(lang Language) string {
	return apologies.For(lang)
}

// ContactInfo identifies the business in generated and templated replies.
type ContactInfo struct {
	BusinessName string
	BusinessType string
	WhatsApp     string
	Email        string
}

var contactLines = Localized{
	LangPortuguese: "📲 WhatsApp %s - respondemos em até 2h!",
	LangEnglish:    "📲 WhatsApp %s - we reply within 2h!",
	LangSpanish:    "📲 WhatsApp %s - ¡respondemos en menos de 2h!",
	LangItalian:    "📲 WhatsApp %s - rispondiamo entro 2 ore!",
}

// ContactLine is the single consolidated contact line appended to replies.
func (c ContactInfo) ContactLine(lang Language) string {
	return fmt.Sprintf(contactLines.For(lang), c.WhatsApp)
}

var greetings = Localized{
	LangPortuguese: "Olá! 👋 Bem-vindo à %s. Criamos sites, automações e soluções com IA para o seu negócio. Como posso ajudar?",
	LangEnglish:    "Hello! 👋 Welcome to %s. We build websites, automation and AI solutions for your business. How can I help?",
	LangSpanish:    "¡Hola! 👋 Bienvenido a %s. Creamos sitios web, automatizaciones y soluciones con IA para tu negocio. ¿Cómo puedo ayudarte?",
	LangItalian:    "Ciao! 👋 Benvenuto in %s. Realizziamo siti web, automazioni e soluzioni di IA per la tua azienda. Come posso aiutarti?",
}

// Greeting is the templated welcome used when the model is skipped or fails.
func (c ContactInfo) Greeting(lang Language) string {
	return fmt.Sprintf(greetings.For(lang), c.BusinessName) + "\n\n" + c.ContactLine(lang)
}

var offTopics = Localized{
	LangPortuguese: "Sou especializado nos serviços da %s: sites, e-commerce, automação e soluções com IA. 😊 Posso ajudar com algum desses temas?",
	LangEnglish:    "I'm specialized in %s services: websites, e-commerce, automation and AI solutions. 😊 Can I help you with any of these?",
	LangSpanish:    "Estoy especializado en los servicios de %s: sitios web, e-commerce, automatización y soluciones con IA. 😊 ¿Puedo ayudarte con alguno de ellos?",
	LangItalian:    "Sono specializzato nei servizi di %s: siti web, e-commerce, automazione e soluzioni di IA. 😊 Posso aiutarti con uno di questi?",
}

// OffTopic is the templated polite redirect.
func (c ContactInfo) OffTopic(lang Language) string {
	return fmt.Sprintf(offTopics.For(lang), c.BusinessName)
}

var handoffs = Localized{
	LangPortuguese: "Claro! Vou conectar você com nossa equipe. Fale diretamente conosco pelo WhatsApp %s ou pelo e-mail %s.",
	LangEnglish:    "Of course! Let me connect you with our team. Reach us directly on WhatsApp %s or by email at %s.",
	LangSpanish:    "¡Claro! Te pondré en contacto con nuestro equipo. Escríbenos por WhatsApp %s o por correo a %s.",
	LangItalian:    "Certo! Ti metto in contatto con il nostro team. Scrivici su WhatsApp %s o via email a %s.",
}

// Handoff is the reply for requests that need a human.
func (c ContactInfo) Handoff(lang Language) string {
	return fmt.Sprintf(handoffs.For(lang), c.WhatsApp, c.Email)
}

var contactAcks = Localized{
	LangPortuguese: "Obrigado! Recebemos seu contato e nossa equipe vai falar com você em até 24h. 🚀",
	LangEnglish:    "Thank you! We received your contact details and our team will reach out within 24h. 🚀",
	LangSpanish:    "¡Gracias! Recibimos tus datos y nuestro equipo te contactará en menos de 24h. 🚀",
	LangItalian:    "Grazie! Abbiamo ricevuto i tuoi contatti e il nostro team ti contatterà entro 24 ore. 🚀",
}

// ContactReceived acknowledges a message in which the user shared their details.
func (c ContactInfo) ContactReceived(lang Language) string {
	return contactAcks.For(lang)
}
