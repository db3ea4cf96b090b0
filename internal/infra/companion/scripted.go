package companion

import (
	"context"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
)

const fallbackLanguage = "en"

// ScriptedAgent answers companion queries from a fixed script. It stands in
// for the hosted model in development and test environments so the full
// request path stays exercisable without remote calls.
type ScriptedAgent struct {
	answers map[string]map[string]string
}

// NewScriptedAgent builds an agent with the default script.
func NewScriptedAgent() *ScriptedAgent {
	return &ScriptedAgent{answers: defaultScript()}
}

// Answer returns the scripted reply for the query's category and language.
// Unknown languages fall back to English, unknown categories to the general
// script.
func (a *ScriptedAgent) Answer(ctx context.Context, query domain.CompanionQuery) (domain.CompanionReply, error) {
	if err := ctx.Err(); err != nil {
		return domain.CompanionReply{}, err
	}

	byLanguage, ok := a.answers[query.Category]
	if !ok {
		byLanguage = a.answers[domain.CategoryGeneral]
	}

	text, ok := byLanguage[query.Language]
	if !ok {
		text = byLanguage[fallbackLanguage]
	}

	return domain.CompanionReply{Reply: text}, nil
}

func defaultScript() map[string]map[string]string {
	return map[string]map[string]string{
		domain.CategoryGeneral: {
			"en": "I can help with quests, tasks, navigation and feedback. What would you like to know?",
			"es": "Puedo ayudarte con misiones, tareas, navegación y comentarios. ¿Qué quieres saber?",
			"pt": "Posso ajudar com missões, tarefas, navegação e feedback. O que você gostaria de saber?",
		},
		domain.CategoryQuestHelp: {
			"en": "Open the quest board from the main menu, pick a quest and press Accept. Rewards are granted when every objective is complete.",
			"es": "Abre el tablero de misiones desde el menú principal, elige una misión y pulsa Aceptar. Las recompensas se otorgan al completar todos los objetivos.",
		},
		domain.CategoryTaskHelp: {
			"en": "Tasks are submitted from their detail page. Attach your work and press Submit before the deadline shown at the top.",
			"es": "Las tareas se envían desde su página de detalle. Adjunta tu trabajo y pulsa Enviar antes de la fecha límite.",
		},
		domain.CategoryNavigation: {
			"en": "Use the sidebar to reach your profile, quest board and settings. The search bar at the top finds any page by name.",
		},
		domain.CategoryFeedback: {
			"en": "Thanks for helping us improve. Describe what happened and we will route it to the right team.",
		},
	}
}

var _ port.CompanionAgent = (*ScriptedAgent)(nil)
