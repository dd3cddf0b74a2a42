package agents

import (
	"context"

	"github.com/theapemachine/agentdeck/pkg/agent"
	"github.com/theapemachine/agentdeck/pkg/prompts"
	"github.com/theapemachine/agentdeck/pkg/registry"
	"github.com/theapemachine/agentdeck/pkg/tools"
)

const (
	cvParserPrompt     = "cv_parser_agent"
	jobParserPrompt    = "job_requirements_parser"
	screeningPrompt    = "resume_screener_agent"
	CandidateStateKey  = "candidate_info"
	JobStateKey        = "job_requirements"
	ScreeningStateKey  = "screening_report"
	resumeScreenerName = "resume_screener_agent"
)

func init() {
	register(registry.Definition{
		Name:        resumeScreenerName,
		Description: "Parses a CV and a job posting, then scores the candidate against the requirements",
		Factory:     newResumeScreener,
	}, prompts.Prompt{
		Name:    cvParserPrompt,
		Version: "v0",
		Template: `
You are a CV and resume parser that extracts structured information from candidate documents.

## Tools
- **load_artifacts**: load an uploaded document before parsing it.
- **save_artifact**: save parsed results or processed documents.

## Task
1. If a CV was uploaded, load it with load_artifacts first.
2. Extract personal details, summary, work experience, education, skills, languages and certifications.
3. Answer with JSON that matches the output schema and nothing else.

## Rules
- Only extract what the document states; leave anything else empty.
- Keep dates as written. Use "Present" for current positions.
- List skills as separate items.
- work_experience and education are lists of objects.
- Keep the candidate's own wording where you can.
`,
	}, prompts.Prompt{
		Name:    jobParserPrompt,
		Version: "v0",
		Template: `
You are a job requirements parser that extracts structured information from job postings and requirement documents.

## Tools
- **load_artifacts**: load an uploaded job description.
- **save_artifact**: save parsed results.
- **url_context**: read a job posting from a URL (LinkedIn, career pages, job boards).

## Task
1. The requirements arrive as a URL, an uploaded document or plain text. Fetch or load them as needed.
2. Extract the title, company, location, employment type, salary, required and preferred skills, experience, education, languages, certifications, work authorization, description, responsibilities, benefits, deadline, start date and remote option.
3. Answer with JSON that matches the output schema and nothing else.

## Rules
- Keep required and preferred skills apart.
- Keep experience as written, e.g. "3-5 years" or "Senior".
- List skills and responsibilities as separate items.
- Set remote_option to true when remote work is mentioned.
- Leave ambiguous fields empty rather than guessing.
`,
	}, prompts.Prompt{
		Name:    screeningPrompt,
		Version: "v0",
		Template: `
You are a resume screening coordinator who helps recruiters evaluate a candidate against a job.

Today's date is {{.CurrentDate}}.

The parsed candidate profile and job requirements are in the conversation above. Do not parse documents yourself.

## Compare
- Candidate skills against required and preferred skills.
- Experience against the required experience.
- Education, languages, certifications and other requirements.

## Answer format

### Job Requirements Summary
A short summary of the role.

### Candidate Profile Summary
A short summary of the candidate.

### Match Analysis

**Overall Match**: X%

**Strengths**:
- ...

**Gaps**:
- ...

**Recommendation**: Yes, No or Maybe, with the reason.

**Next Steps**: interview questions and points to verify.

## Rules
- Be objective and fair; frame gaps as areas to explore.
- If the CV or the requirements are missing, summarise what you have and ask for the rest.
- Note missing information instead of guessing.
- Use a table when comparing many skills.
`,
	})
}

/*
newResumeScreener chains three agents: the CV parser and the job requirements
parser each store a decoded record in session state, then the report agent
compares the two.
*/
func newResumeScreener(ctx context.Context, deps registry.Deps) (agent.Agent, error) {
	fast, err := fastModel(deps)

	if err != nil {
		return nil, err
	}

	reasoning, err := reasoningModel(deps)

	if err != nil {
		return nil, err
	}

	instructions := map[string]string{}

	for _, name := range []string{cvParserPrompt, jobParserPrompt, screeningPrompt} {
		if instructions[name], err = deps.Instruction(name); err != nil {
			return nil, err
		}
	}

	cvParser := agent.NewLLMAgent("cv_parser_agent", fast,
		agent.WithDescription("Parses CV and resume documents into structured candidate information"),
		agent.WithInstruction(instructions[cvParserPrompt]),
		agent.WithTools(tools.NewSaveArtifactTool(), tools.NewLoadArtifactsTool()),
		agent.WithOutput[CandidateInfo](CandidateStateKey),
	)

	jobParser := agent.NewLLMAgent("job_requirements_parser", fast,
		agent.WithDescription("Parses job requirements from text, documents or URLs"),
		agent.WithInstruction(instructions[jobParserPrompt]),
		agent.WithTools(tools.NewSaveArtifactTool(), tools.NewLoadArtifactsTool(), tools.URLContext()),
		agent.WithOutput[JobRequirement](JobStateKey),
	)

	report := agent.NewLLMAgent("screening_report_agent", reasoning,
		agent.WithDescription("Scores the candidate against the job requirements"),
		agent.WithInstruction(instructions[screeningPrompt]),
		agent.WithOutputKey(ScreeningStateKey),
	)

	return agent.NewSequentialAgent(resumeScreenerName,
		"Parses a CV and a job posting, then scores the candidate against the requirements",
		cvParser, jobParser, report,
	), nil
}
