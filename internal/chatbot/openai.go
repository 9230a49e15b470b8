package chatbot

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `Eres el asistente virtual de Chamba Tutorías, una plataforma que conecta estudiantes con tutores en El Salvador.

Tu trabajo:
- Ayudar a estudiantes a encontrar tutores según la materia y el nivel académico que necesitan.
- Ayudar a tutores registrados a consultar o actualizar su perfil.
- Guiar a nuevos tutores al proceso de registro.

Reglas:
- Responde siempre en español, con un tono amable y cercano.
- Usa las funciones disponibles para buscar tutores o crear solicitudes; nunca inventes tutores ni datos.
- Las materias válidas son: MATEMATICAS, ALGEBRA, CALCULO, FISICA, QUIMICA, BIOLOGIA, INGLES, ESPANOL, HISTORIA, GEOGRAFIA, PROGRAMACION, CIENCIAS_COMPUTACION, ECONOMIA, CONTABILIDAD, ESTADISTICA, OTRO.
- Los niveles académicos válidos son: PRIMARIA, SECUNDARIA, PREPARATORIA, UNIVERSIDAD, POSGRADO, PROFESIONAL.
- Antes de crear una solicitud de tutoría o un perfil, el usuario debe haber verificado su teléfono con un código OTP.
- Mantén las respuestas cortas, aptas para un chat.`

var functionDefinitions = []openai.FunctionDefinition{
	{
		Name:        string(FnSearchTutors),
		Description: "Busca tutores activos por materia y, opcionalmente, nivel académico.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"subject": {"type": "string", "description": "Materia (valor del enum, p. ej. MATEMATICAS)"},
				"grade_level": {"type": "string", "description": "Nivel académico (opcional)"},
				"max_results": {"type": "integer", "description": "Máximo de tutores a devolver (por defecto 3)"}
			},
			"required": ["subject"]
		}`),
	},
	{
		Name:        string(FnGetTutorProfile),
		Description: "Obtiene el perfil de tutor asociado a un número de teléfono.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"phone": {"type": "string", "description": "Teléfono del tutor"}
			},
			"required": ["phone"]
		}`),
	},
	{
		Name:        string(FnCreateTutorProf),
		Description: "Crea un perfil de tutor para un usuario verificado y aprobado.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"phone": {"type": "string"},
				"name": {"type": "string"},
				"subjects": {"type": "array", "items": {"type": "string"}},
				"grade_levels": {"type": "array", "items": {"type": "string"}},
				"bio": {"type": "string"},
				"education": {"type": "string"},
				"scheduling_link": {"type": "string"}
			},
			"required": ["phone", "subjects"]
		}`),
	},
	{
		Name:        string(FnUpdateTutorProf),
		Description: "Actualiza campos del perfil de un tutor existente.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"phone": {"type": "string"},
				"name": {"type": "string"},
				"subjects": {"type": "array", "items": {"type": "string"}},
				"grade_levels": {"type": "array", "items": {"type": "string"}},
				"bio": {"type": "string"},
				"education": {"type": "string"},
				"scheduling_link": {"type": "string"}
			},
			"required": ["phone"]
		}`),
	},
	{
		Name:        string(FnCreateTutoringReq),
		Description: "Crea una solicitud de tutoría para un estudiante verificado.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"phone": {"type": "string"},
				"subject": {"type": "string"},
				"grade_level": {"type": "string"},
				"topic": {"type": "string", "description": "Tema específico de la tutoría"}
			},
			"required": ["phone", "subject"]
		}`),
	},
	{
		Name:        string(FnSendOTP),
		Description: "Envía un código de verificación por SMS al teléfono indicado.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"phone": {"type": "string"}
			},
			"required": ["phone"]
		}`),
	},
	{
		Name:        string(FnVerifyOTP),
		Description: "Verifica el código OTP recibido y crea o actualiza el usuario.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"phone": {"type": "string"},
				"code": {"type": "string"}
			},
			"required": ["phone", "code"]
		}`),
	},
}

// maxFunctionRounds bounds how many tool invocations a single chat turn may
// chain before the model is forced to answer in plain text.
const maxFunctionRounds = 3

// LLMEngine answers chat turns through the OpenAI chat completion API with
// function calling against the Catalog.
type LLMEngine struct {
	Client  *openai.Client
	Catalog *Catalog
	Model   string
}

func NewLLMEngine(apiKey string, catalog *Catalog) *LLMEngine {
	return &LLMEngine{
		Client:  openai.NewClient(apiKey),
		Catalog: catalog,
		Model:   openai.GPT4oMini,
	}
}

func toOpenAIMessages(history []HistoryMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	out = append(out, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range history {
		msg := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		}
		if m.FunctionCall != nil {
			msg.FunctionCall = &openai.FunctionCall{
				Name:      m.FunctionCall.Name,
				Arguments: m.FunctionCall.Arguments,
			}
		}
		out = append(out, msg)
	}
	return out
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) HistoryMessage {
	h := HistoryMessage{Role: m.Role, Content: m.Content, Name: m.Name}
	if m.FunctionCall != nil {
		h.FunctionCall = &FunctionCallRef{
			Name:      m.FunctionCall.Name,
			Arguments: m.FunctionCall.Arguments,
		}
	}
	return h
}

// Handle runs one chat turn: completion, any function calls the model asks
// for, and a final completion over the function results.
func (e *LLMEngine) Handle(ctx context.Context, message string, history []HistoryMessage) (*Response, error) {
	history = append(history, HistoryMessage{Role: openai.ChatMessageRoleUser, Content: message})
	messages := toOpenAIMessages(history)

	for round := 0; ; round++ {
		req := openai.ChatCompletionRequest{
			Model:    e.Model,
			Messages: messages,
		}
		if round < maxFunctionRounds {
			req.Functions = functionDefinitions
		}

		resp, err := e.Client.CreateChatCompletion(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("chat completion returned no choices")
		}
		choice := resp.Choices[0].Message

		if choice.FunctionCall == nil {
			history = append(history, fromOpenAIMessage(choice))
			return &Response{
				Message:             choice.Content,
				ConversationHistory: history,
				UsedAI:              true,
			}, nil
		}

		result, err := e.Catalog.Execute(FunctionName(choice.FunctionCall.Name), json.RawMessage(choice.FunctionCall.Arguments))
		if err != nil {
			return nil, fmt.Errorf("función %s: %w", choice.FunctionCall.Name, err)
		}
		payload, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}

		history = append(history, fromOpenAIMessage(choice))
		history = append(history, HistoryMessage{
			Role:    openai.ChatMessageRoleFunction,
			Name:    choice.FunctionCall.Name,
			Content: string(payload),
		})
		messages = append(messages,
			choice,
			openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleFunction,
				Name:    choice.FunctionCall.Name,
				Content: string(payload),
			},
		)
	}
}
