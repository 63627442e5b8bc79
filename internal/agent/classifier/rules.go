package classifier

import (
	"strings"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/textutil"
)

// Phrase sets are matched on word boundaries against the normalized message.
var (
	meetingPhrases = []string{
		"agendar", "agendamento", "marcar uma reunião", "marcar reunião", "reunião", "videochamada",
		"schedule a meeting", "schedule a call", "book a call", "book a meeting", "meeting",
		"agendar una reunión", "reunión", "cita",
		"fissare un appuntamento", "appuntamento", "riunione",
	}

	agentPhrases = []string{
		"falar com humano", "falar com um humano", "falar com uma pessoa", "falar com alguém",
		"atendente", "atendimento humano", "contato", "whatsapp de vocês", "telefone de vocês", "email de vocês",
		"talk to a human", "talk to a person", "speak to someone", "human agent", "real person", "contact",
		"hablar con una persona", "hablar con un humano", "agente humano", "contacto",
		"parlare con una persona", "operatore", "contatto",
	}

	quotePhrases = []string{
		"orçamento", "quanto custa", "quanto cobra", "quanto cobram", "quanto fica", "quanto sai",
		"preço", "preços", "valor", "valores", "cotação", "proposta",
		"quote", "price", "pricing", "how much", "cost", "budget", "proposal",
		"presupuesto", "precio", "cuánto cuesta", "cuanto cuesta", "cotización",
		"preventivo", "prezzo", "quanto costa",
	}

	servicePhrases = []string{
		"serviço", "serviços", "vocês fazem", "o que fazem", "como funciona", "prazo",
		"site", "sites", "landing page", "e-commerce", "ecommerce", "loja virtual",
		"automação", "chatbot", "inteligência artificial", "soluções com ia", "integração",
		"service", "services", "website", "websites", "online store", "automation", "artificial intelligence",
		"servicio", "servicios", "sitio web", "tienda online", "automatización", "inteligencia artificial",
		"servizio", "servizi", "sito", "sito web", "automazione", "intelligenza artificiale",
	}

	greetingTokens = []string{
		"oi", "olá", "ola", "opa", "e aí", "bom dia", "boa tarde", "boa noite",
		"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
		"hola", "buenos días", "buenas tardes", "buenas noches",
		"ciao", "salve", "buongiorno", "buonasera",
	}

	// fastTrackPhrases signal a direct answer is wanted and context retrieval can be skipped.
	fastTrackPhrases = []string{
		"tabela de preços", "tabela de preço", "lista de preços", "planos", "pacotes",
		"price list", "plans", "packages", "lista de precios", "planes", "listino prezzi", "pacchetti",
		"wordpress", "shopify", "wix", "woocommerce", "nuvemshop", "webflow",
		"n8n", "zapier", "make.com", "rpa", "crm", "erp", "api",
		"chatbot de whatsapp", "whatsapp business", "automação de whatsapp", "whatsapp automation",
	}
)

const maxGreetingWords = 4

// Rule names the rule-layer category that fired.
type Rule string

const (
	RuleContactShared Rule = "contact_shared"
	RuleMeeting       Rule = "meeting"
	RuleAgent         Rule = "agent"
	RuleQuote         Rule = "quote"
	RuleService       Rule = "service"
	RuleGreeting      Rule = "greeting"
)

// MatchRules runs the deterministic layer in fixed priority:
// human contact, quote, service, short greeting.
func MatchRules(message string) (model.Intent, Rule, bool) {
	msg := textutil.Normalize(message)
	if msg == "" {
		return "", "", false
	}

	switch {
	case textutil.HasContact(message):
		return model.IntentShareContact, RuleContactShared, true
	case textutil.ContainsAny(msg, meetingPhrases):
		return model.IntentScheduleMeeting, RuleMeeting, true
	case textutil.ContainsAny(msg, agentPhrases):
		return model.IntentChatWithAgent, RuleAgent, true
	case textutil.ContainsAny(msg, quotePhrases):
		return model.IntentRequestQuote, RuleQuote, true
	case textutil.ContainsAny(msg, servicePhrases):
		return model.IntentInquireServices, RuleService, true
	case isShortGreeting(msg):
		return model.IntentGreeting, RuleGreeting, true
	}
	return "", "", false
}

func isShortGreeting(msg string) bool {
	return textutil.WordCount(msg) <= maxGreetingWords &&
		!strings.Contains(msg, "?") &&
		textutil.ContainsAny(msg, greetingTokens)
}

// IsFastTrack reports whether message asks for something answerable without retrieval.
func IsFastTrack(message string) bool {
	return textutil.ContainsAny(textutil.Normalize(message), fastTrackPhrases)
}
