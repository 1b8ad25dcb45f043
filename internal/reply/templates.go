package reply

import (
	"hash/fnv"
	"regexp"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Intent names what a reply has to achieve.
type Intent string

const (
	IntentAskPhoto         Intent = "ask_photo"
	IntentAwaitingApproval Intent = "awaiting_approval"
	IntentNewQuote         Intent = "new_quote"
	IntentEstimateAskDate  Intent = "estimate_ask_date"
	IntentHumanReview      Intent = "human_review"
	IntentAskDate          Intent = "ask_date"
	IntentWeekFull         Intent = "week_full"
	IntentSuggestSlot      Intent = "suggest_slot"
	IntentUnavailable      Intent = "unavailable"
	IntentPreReserved      Intent = "pre_reserved"
	IntentClosed           Intent = "closed"
	IntentCancelled        Intent = "cancelled"
	IntentEscalated        Intent = "escalated"
)

// Placeholders understood by the templates.
const (
	KeyDate   = "date"
	KeyPeriod = "period"
	KeyValue  = "value"
)

var templates = map[Intent][]string{
	IntentAskPhoto: {
		"Para seguir, pode me mandar uma foto do dano? Assim consigo te ajudar melhor.",
		"Consegue enviar uma foto do amassado? Isso já agiliza o orçamento.",
		"Se puder, me envie uma foto do amassado e diga qual parte do carro foi afetada.",
		"Me manda uma foto do carro, por favor? Aí eu consigo orientar certinho.",
		"Uma foto do amassado ajuda bastante. Pode enviar quando conseguir?",
	},
	IntentAwaitingApproval: {
		"Só um instante, estou confirmando com o responsável e já te retorno.",
		"Estou checando a aprovação com o responsável e já te respondo.",
		"Vou validar com o responsável e já te aviso, tudo bem?",
		"Já estou levando para aprovação e te retorno em seguida.",
	},
	IntentNewQuote: {
		"Claro! Para um novo orçamento, pode me enviar uma foto do amassado?",
		"Bora fazer um novo orçamento? Me manda uma foto do dano, por favor.",
		"Consigo te ajudar sim. Envia uma foto do amassado pra eu analisar?",
		"Vamos seguir com um novo orçamento. Pode mandar uma foto do carro?",
	},
	IntentEstimateAskDate: {
		"Perfeito! Pela foto, conseguimos fazer sim. O orçamento estimado fica em R$ {value} (podendo variar após avaliação presencial). Qual dia você consegue deixar o carro na oficina?",
		"Ótimo, dá pra fazer. O valor estimado é R$ {value}. Qual dia (dd/mm) você prefere deixar o carro?",
		"Conseguimos sim. Orçamento estimado de R$ {value}. Me diz uma data que funcione pra você.",
	},
	IntentHumanReview: {
		"Para esse caso, precisamos que um profissional avalie melhor. Vou encaminhar para o responsável e retornamos em seguida, tudo bem?",
		"Esse caso precisa de avaliação do responsável. Vou encaminhar e já te aviso.",
		"Vou pedir uma análise do responsável para te responder certinho. Já volto com retorno.",
	},
	IntentAskDate: {
		"Qual data (dd/mm) você prefere? Se quiser, pode indicar manhã ou tarde.",
		"Me diz uma data que funcione e, se tiver preferência, manhã ou tarde.",
		"Qual dia seria melhor pra você? Pode indicar manhã ou tarde também.",
		"Me passa uma data (dd/mm) que funcione? Se quiser, manhã ou tarde.",
	},
	IntentWeekFull: {
		"Essa semana já está completa. Quer me passar outra data?",
		"Fechamos essa semana. Pode sugerir outro dia?",
		"Essa semana não tem mais vagas. Me fala outra data, por favor.",
		"Essa semana está cheia. Quer tentar outra data?",
	},
	IntentSuggestSlot: {
		"A próxima vaga é {date} ({period}). Pode ser?",
		"Tenho disponibilidade em {date} no período da {period}. Funciona?",
		"Posso te atender em {date} ({period}). Está ok?",
		"A próxima data disponível é {date} ({period}). Serve pra você?",
	},
	IntentUnavailable: {
		"Não temos vaga nessa data. Quer sugerir outra?",
		"Essa data já está cheia. Pode me dizer outra?",
		"Sem vaga nesse dia. Me passa outra data, por favor.",
		"Esse dia não tem mais vaga. Quer tentar outra data?",
	},
	IntentPreReserved: {
		"Perfeito, pré-reservei {date} ({period}). Vou confirmar com o responsável e já retorno.",
		"Certo! Deixei pré-reservado {date} ({period}). Vou validar e te aviso.",
		"Combinado, pré-reserva feita para {date} ({period}). Já volto com a confirmação.",
	},
	IntentClosed: {
		"Por aqui está tudo finalizado. Se precisar de um novo orçamento, é só me chamar.",
		"Atendimento encerrado por aqui. Quer fazer um novo orçamento?",
		"Tudo certo por aqui. Se quiser um novo orçamento, me avise.",
		"Finalizamos por aqui. Quando quiser um novo orçamento, estou à disposição.",
	},
	IntentCancelled: {
		"Tudo bem, cancelei por aqui. Se mudar de ideia, é só mandar uma nova foto.",
		"Sem problemas, deixei cancelado. Quando quiser retomar, me chama.",
		"Combinado, não vou seguir com esse orçamento. Estou à disposição se precisar.",
	},
	IntentEscalated: {
		"O responsável vai falar com você em breve para combinar os detalhes.",
		"Seu caso está com o responsável. Ele já vai te chamar por aqui.",
		"Já encaminhei para o responsável, ele te retorna em seguida.",
	},
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// Fallback renders the template for req. The variant is chosen from
// req.Seed, so the same customer sees a stable phrasing for each intent.
func Fallback(req Request) string {
	variants, ok := templates[req.Intent]
	if !ok || len(variants) == 0 {
		variants = templates[IntentAskPhoto]
	}
	tpl := variants[pick(req.Seed+"|"+string(req.Intent), len(variants))]
	return render(tpl, req.Data)
}

func render(tpl string, data map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		key := m[1 : len(m)-1]
		if v, ok := data[key]; ok && v != "" {
			return v
		}
		return m
	})
}

func pick(seed string, n int) int {
	if n <= 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return int(h.Sum32() % uint32(n))
}

var brl = message.NewPrinter(language.BrazilianPortuguese)

// FormatValue renders a currency amount the way customers read it ("1.250,00").
func FormatValue(v float64) string {
	return brl.Sprintf("%.2f", v)
}

// FormatValueOrDash is FormatValue for optional amounts.
func FormatValueOrDash(v *float64) string {
	if v == nil {
		return "---"
	}
	return FormatValue(*v)
}
