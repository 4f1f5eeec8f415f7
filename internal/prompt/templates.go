package prompt

import (
	"text/template"

	"github.com/abhisek/examforge/internal/exam"
)

const draftSystemPrompt = `You are an experienced teacher writing exam questions about a source document.

Rules:
- Every question must be answerable from the source text alone.
- Write exactly the number of questions requested for each type.
- Number the questions "1.", "2.", ... and follow the requested format exactly.
- Multiple choice questions have exactly four options labeled A) to D) with one correct option.
- Do not add commentary before or after the questions.`

var draftTemplate = template.Must(template.New("draft").Parse(`Write {{.Total}} exam questions based on the source text below.

{{range .Blocks}}- {{.Count}} of type {{.Kind}}, each formatted as:
{{.Format}}

{{end}}Source text:
"""
{{.Source}}
"""`))

// Draft renders the phase-one instruction. A non-empty override is the
// caller's own instruction and is returned verbatim.
func (b *Builder) Draft(source string, quota exam.QuotaSpec, override string) Prompt {
	if override != "" {
		return Prompt{User: override}
	}
	return Prompt{
		System: draftSystemPrompt,
		User: render(draftTemplate, struct {
			Total  int
			Blocks []kindBlock
			Source string
		}{quota.Total(), blocks(quota), Truncate(source, b.cfg.SourceBudget)}),
	}
}

const conversionSystemPrompt = `You convert exam question drafts into JSON. You reply with JSON only.`

var conversionTemplate = template.Must(template.New("conversion").Parse(`Convert the exam questions below into a JSON object with this exact shape:

{"questions": [{"kind": "...", "prompt_text": "...", "choices": ["...", "...", "...", "..."], "correct_answer": "...", "explanation": "...", "points": 1}]}

Rules:
- "kind" is one of: {{range $i, $k := .Kinds}}{{if $i}}, {{end}}{{$k}}{{end}}.
- "choices" is present only for multiple_choice and holds exactly four options without labels.
- "correct_answer" is the letter A, B, C or D for multiple_choice, "true" or "false" for true_false, and the expected answer text otherwise.
- Expected counts: {{.Quota}}.
- Reply with the JSON object only. No markdown fences, no commentary.

Questions:
{{.Draft}}`))

// Conversion renders the phase-two instruction that turns a free-text
// draft into the structured question set.
func (b *Builder) Conversion(draft string, quota exam.QuotaSpec) Prompt {
	return Prompt{
		System: conversionSystemPrompt,
		User: render(conversionTemplate, struct {
			Kinds []exam.Kind
			Quota string
			Draft string
		}{quota.Kinds(), quota.String(), draft}),
	}
}

const rubricSystemPrompt = `You are a fair examiner grading a student's answer against the expected answer. Award partial credit for partially correct answers. Be concise.`

var rubricTemplate = template.Must(template.New("rubric").Parse(`Question: {{.Question}}
{{if .KeyPoints}}Key points the answer should cover:
{{range .KeyPoints}}- {{.}}
{{end}}{{else}}Expected answer: {{.Expected}}
{{end}}Maximum points: {{.Max}}

Student answer:
"""
{{.Answer}}
"""

Reply with a JSON object {"score": <number from 0 to {{.Max}}>, "rationale": "<one sentence>"}.
If you cannot reply in JSON, reply with "Score: N/{{.Max}}" on the first line followed by "Rationale: <one sentence>".`))

// Rubric renders the scoring instruction for an open answer.
func (b *Builder) Rubric(record exam.QuestionRecord, answer string) Prompt {
	return Prompt{
		System: rubricSystemPrompt,
		User: render(rubricTemplate, struct {
			Question  string
			Expected  string
			KeyPoints []string
			Max       int
			Answer    string
		}{record.Prompt, record.Answer.Value, record.Answer.KeyPoints, record.Points, answer}),
	}
}
