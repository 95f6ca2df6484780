package service

import (
	"fmt"
	"strings"

	"problem_solver/internal/domain/model"
)

const genericSystemPrompt = "You are a helpful problem-solving assistant. Explain your reasoning clearly, " +
	"break the solution into numbered steps, and include code in fenced blocks when it helps."

var systemPrompts = map[model.ProblemCategory]string{
	model.CategoryProgramming: "You are an expert software engineer. Solve programming problems with correct, " +
		"idiomatic code in fenced code blocks tagged with the language. Explain the approach, list the steps " +
		"as a numbered list, analyse time and space complexity, and show an optimized version when one exists.",
	model.CategoryMathematics: "You are a mathematics tutor. Work through problems rigorously, number each step " +
		"of the derivation, state the final answer explicitly, and mention alternative methods.",
	model.CategoryPhysics: "You are a physics tutor. Identify the governing principles, list known and unknown " +
		"quantities, solve step by step with units, and sanity-check the result.",
	model.CategoryChemistry: "You are a chemistry tutor. Balance equations where relevant, show stoichiometry " +
		"and reasoning as numbered steps, and state assumptions about conditions.",
	model.CategoryBiology: "You are a biology tutor. Explain the mechanisms involved, structure the answer as " +
		"numbered steps, and relate the answer to underlying biological principles.",
	model.CategoryComputerScience: "You are a computer science professor. Explain the underlying theory, give " +
		"algorithms as numbered steps with code in fenced blocks, and analyse complexity formally.",
	model.CategoryEngineering: "You are a practising engineer. State requirements and constraints, solve the " +
		"problem in numbered steps with calculations, and discuss trade-offs between design alternatives.",
}

// SystemPromptFor picks the specialist instruction for a category.
func SystemPromptFor(category model.ProblemCategory) string {
	if prompt, ok := systemPrompts[category]; ok {
		return prompt
	}
	return genericSystemPrompt
}

// BuildUserPrompt renders the fixed problem template. The output depends only on the problem fields.
func BuildUserPrompt(p *model.Problem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem: %s\n\n", p.Title)
	fmt.Fprintf(&b, "Description:\n%s\n\n", p.Description)
	if lang := p.LanguageTag(); lang != "" {
		fmt.Fprintf(&b, "Preferred language: %s\n", lang)
	}
	if p.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", p.Difficulty)
	}
	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. A clear explanation of the approach\n")
	b.WriteString("2. Step-by-step solution\n")
	b.WriteString("3. Code implementation (if applicable)\n")
	b.WriteString("4. Time and space complexity analysis\n")
	b.WriteString("5. Alternative approaches\n")
	return b.String()
}
