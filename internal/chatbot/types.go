package chatbot

// ConversationState is the client-echoed state blob for the rule engine.
// The server keeps no chat session of its own.
type ConversationState struct {
	Step string            `json:"step"`
	Role string            `json:"role,omitempty"`
	Data map[string]string `json:"data"`
}

func NewState() *ConversationState {
	return &ConversationState{Step: StepGreeting, Data: map[string]string{}}
}

func (s *ConversationState) with(step string, kv ...string) *ConversationState {
	next := &ConversationState{Step: step, Role: s.Role, Data: map[string]string{}}
	for k, v := range s.Data {
		next.Data[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		next.Data[kv[i]] = kv[i+1]
	}
	return next
}

// FunctionCallRef mirrors the wire shape of an assistant function call so
// LLM histories round-trip through the client untouched.
type FunctionCallRef struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// HistoryMessage is one turn of the client-echoed LLM history.
type HistoryMessage struct {
	Role         string           `json:"role"`
	Content      string           `json:"content"`
	Name         string           `json:"name,omitempty"`
	FunctionCall *FunctionCallRef `json:"function_call,omitempty"`
}

// Request is the body of POST /api/chat.
type Request struct {
	Message             string             `json:"message"`
	ConversationState   *ConversationState `json:"conversationState"`
	ConversationHistory []HistoryMessage   `json:"conversationHistory"`
}

// Response is the chat turn result.
type Response struct {
	Message             string             `json:"message"`
	QuickReplies        []string           `json:"quickReplies,omitempty"`
	ConversationState   *ConversationState `json:"conversationState,omitempty"`
	ConversationHistory []HistoryMessage   `json:"conversationHistory,omitempty"`
	UsedAI              bool               `json:"useAI,omitempty"`
}
