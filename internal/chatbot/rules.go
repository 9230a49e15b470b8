package chatbot

import (
	"fmt"
	"strings"

	"github.com/chamba-tutorias/backend/internal/models"
)

// Conversation steps for the rule-based flow.
const (
	StepGreeting       = "greeting"
	StepStudentName    = "student_name"
	StepStudentSubject = "student_subject"
	StepStudentSelect  = "student_select"
	StepComplete       = "complete"
)

const (
	tutorFormURL  = "https://forms.gle/VxgW3MHPV8A7PPg39"
	tutorWhatsApp = "+503 7648-7592"
)

// RuleEngine drives the scripted conversation when no language model is
// available (or when a model call fails mid-turn).
type RuleEngine struct {
	Catalog *Catalog
}

func NewRuleEngine(catalog *Catalog) *RuleEngine {
	return &RuleEngine{Catalog: catalog}
}

var subjectKeywords = map[string]models.Subject{
	"matematica":   models.SubjectMatematicas,
	"matemáticas":  models.SubjectMatematicas,
	"mate":         models.SubjectMatematicas,
	"algebra":      models.SubjectAlgebra,
	"álgebra":      models.SubjectAlgebra,
	"calculo":      models.SubjectCalculo,
	"cálculo":      models.SubjectCalculo,
	"fisica":       models.SubjectFisica,
	"física":       models.SubjectFisica,
	"quimica":      models.SubjectQuimica,
	"química":      models.SubjectQuimica,
	"biologia":     models.SubjectBiologia,
	"biología":     models.SubjectBiologia,
	"ingles":       models.SubjectIngles,
	"inglés":       models.SubjectIngles,
	"english":      models.SubjectIngles,
	"español":      models.SubjectEspanol,
	"espanol":      models.SubjectEspanol,
	"lenguaje":     models.SubjectEspanol,
	"historia":     models.SubjectHistoria,
	"geografia":    models.SubjectGeografia,
	"geografía":    models.SubjectGeografia,
	"programacion": models.SubjectProgramacion,
	"programación": models.SubjectProgramacion,
	"computacion":  models.SubjectCienciasComp,
	"computación":  models.SubjectCienciasComp,
	"contabilidad": models.SubjectContabilidad,
	"economia":     models.SubjectEconomia,
	"economía":     models.SubjectEconomia,
	"estadistica":  models.SubjectEstadistica,
	"estadística":  models.SubjectEstadistica,
}

func detectSubject(message string) (models.Subject, bool) {
	lower := strings.ToLower(message)
	for keyword, subj := range subjectKeywords {
		if strings.Contains(lower, keyword) {
			return subj, true
		}
	}
	return "", false
}

func wantsTutorSignup(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range []string{"ser tutor", "quiero enseñar", "quiero ensenar", "dar clases", "dar tutorias", "dar tutorías", "registrarme como tutor", "soy tutor"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Handle advances the scripted flow a single turn.
func (r *RuleEngine) Handle(message string, state *ConversationState) (*Response, error) {
	if state == nil || state.Step == "" {
		state = NewState()
	}

	if wantsTutorSignup(message) {
		next := state.with(StepGreeting)
		next.Role = "tutor"
		return &Response{
			Message: "¡Qué bueno que quieras ser tutor en Chamba Tutorías! 🎓\n\n" +
				"Para registrarte, llena este formulario: " + tutorFormURL + "\n\n" +
				"O escríbenos por WhatsApp al " + tutorWhatsApp + " y te guiamos en el proceso.",
			QuickReplies:      []string{"Buscar un tutor", "Tengo otra pregunta"},
			ConversationState: next,
		}, nil
	}

	switch state.Step {
	case StepGreeting:
		if subj, ok := detectSubject(message); ok {
			return r.searchAndReply(subj, state)
		}
		next := state.with(StepStudentName)
		next.Role = "student"
		return &Response{
			Message: "¡Hola! 👋 Soy el asistente de Chamba Tutorías. Te ayudo a encontrar el tutor ideal.\n\n" +
				"¿Cómo te llamas?",
			ConversationState: next,
		}, nil

	case StepStudentName:
		name := strings.TrimSpace(message)
		if name == "" {
			return &Response{
				Message:           "No logré entender tu nombre, ¿me lo repites?",
				ConversationState: state,
			}, nil
		}
		return &Response{
			Message: fmt.Sprintf("¡Mucho gusto, %s! 😊\n\n¿Con qué materia necesitas ayuda?", name),
			QuickReplies: []string{
				models.SubjectLabels[models.SubjectMatematicas],
				models.SubjectLabels[models.SubjectFisica],
				models.SubjectLabels[models.SubjectIngles],
				models.SubjectLabels[models.SubjectProgramacion],
			},
			ConversationState: state.with(StepStudentSubject, "student_name", name),
		}, nil

	case StepStudentSubject:
		subj, ok := detectSubject(message)
		if !ok {
			return &Response{
				Message: "No reconocí esa materia. Puedes escoger una de estas o escribir la tuya:",
				QuickReplies: []string{
					models.SubjectLabels[models.SubjectMatematicas],
					models.SubjectLabels[models.SubjectQuimica],
					models.SubjectLabels[models.SubjectEspanol],
					models.SubjectLabels[models.SubjectEconomia],
				},
				ConversationState: state,
			}, nil
		}
		return r.searchAndReply(subj, state)

	case StepStudentSelect:
		return &Response{
			Message: "¡Perfecto! Para coordinar tu tutoría, crea tu solicitud en la app y el tutor te contactará. " +
				"¿Te ayudo con otra materia?",
			QuickReplies:      []string{"Sí, otra materia", "No, gracias"},
			ConversationState: state.with(StepComplete),
		}, nil

	default: // StepComplete or unknown
		if subj, ok := detectSubject(message); ok {
			return r.searchAndReply(subj, state)
		}
		return &Response{
			Message:           "¿En qué más te puedo ayudar? Puedo buscarte tutores de cualquier materia. 📚",
			QuickReplies:      []string{"Buscar un tutor", "Quiero ser tutor"},
			ConversationState: state.with(StepGreeting),
		}, nil
	}
}

func (r *RuleEngine) searchAndReply(subj models.Subject, state *ConversationState) (*Response, error) {
	result, err := r.Catalog.SearchTutors(string(subj), state.Data["grade_level"], 3)
	if err != nil {
		return nil, err
	}

	if len(result.Tutors) == 0 {
		return &Response{
			Message: "Por ahora no tenemos tutores disponibles de " + subj.Label() + " 😔\n\n" +
				"¿Quieres buscar otra materia?",
			QuickReplies:      []string{"Otra materia", "No, gracias"},
			ConversationState: state.with(StepStudentSubject, "student_subject", string(subj)),
		}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Encontré %d tutores de %s para ti:\n", len(result.Tutors), subj.Label())
	replies := make([]string, 0, len(result.Tutors))
	for i, t := range result.Tutors {
		fmt.Fprintf(&b, "\n%d. *%s* ⭐ %.1f", i+1, t.Name, t.Rating)
		if t.Education != "" {
			fmt.Fprintf(&b, "\n   🎓 %s", t.Education)
		}
		if t.CompletedSessions > 0 {
			fmt.Fprintf(&b, "\n   ✅ %d sesiones completadas", t.CompletedSessions)
		}
		replies = append(replies, t.Name)
	}
	b.WriteString("\n\n¿Con cuál te gustaría agendar?")

	return &Response{
		Message:           b.String(),
		QuickReplies:      replies,
		ConversationState: state.with(StepStudentSelect, "student_subject", string(subj)),
	}, nil
}
