package agents

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
)

/*
StringList decodes whatever shape a model produces for a list of strings: a
JSON array, a comma separated string, or an object of lists such as
{"technical": [...], "soft": "a, b"}.
*/
type StringList []string

func (list *StringList) UnmarshalJSON(data []byte) error {
	var raw any

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*list = flatten(raw)
	return nil
}

func (StringList) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:  "array",
		Items: &jsonschema.Schema{Type: "string"},
	}
}

func flatten(raw any) StringList {
	out := StringList{}

	switch value := raw.(type) {
	case string:
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	case []any:
		for _, item := range value {
			out = append(out, flatten(item)...)
		}
	case map[string]any:
		for _, key := range []string{"technical", "soft"} {
			out = append(out, flatten(value[key])...)
		}
	}

	return out
}

// Text accepts a string or a list of strings, which is joined with spaces.
type Text string

func (text *Text) UnmarshalJSON(data []byte) error {
	var raw any

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch value := raw.(type) {
	case string:
		*text = Text(value)
	case []any:
		parts := make([]string, 0, len(value))

		for _, item := range value {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}

		*text = Text(strings.Join(parts, " "))
	}

	return nil
}

func (Text) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}

// Location accepts "City, Country" or {"city": ..., "country": ...}.
type Location string

func (location *Location) UnmarshalJSON(data []byte) error {
	var raw any

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch value := raw.(type) {
	case string:
		*location = Location(value)
	case map[string]any:
		parts := []string{}

		for _, key := range []string{"city", "country"} {
			if s, ok := value[key].(string); ok && s != "" {
				parts = append(parts, s)
			}
		}

		*location = Location(strings.Join(parts, ", "))
	}

	return nil
}

func (Location) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: "City and country"}
}

// Flag accepts a boolean or words such as "yes", "remote" or "available".
type Flag bool

func (flag *Flag) UnmarshalJSON(data []byte) error {
	var raw any

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch value := raw.(type) {
	case bool:
		*flag = Flag(value)
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "yes", "1", "remote", "available":
			*flag = true
		default:
			*flag = false
		}
	}

	return nil
}

func (Flag) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean"}
}

type WorkExperience struct {
	JobTitle    string `json:"job_title,omitempty" jsonschema:"description=Job title or position"`
	Company     string `json:"company,omitempty" jsonschema:"description=Company or organization name"`
	StartDate   string `json:"start_date,omitempty" jsonschema:"description=Start date as written in the CV"`
	EndDate     string `json:"end_date,omitempty" jsonschema:"description=End date or Present"`
	Description Text   `json:"description,omitempty" jsonschema:"description=Key responsibilities"`
}

func (experience *WorkExperience) UnmarshalJSON(data []byte) error {
	type plain WorkExperience

	aux := struct {
		*plain
		Title string `json:"title"`
	}{plain: (*plain)(experience)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if experience.JobTitle == "" {
		experience.JobTitle = aux.Title
	}

	return nil
}

type Education struct {
	Degree         string `json:"degree,omitempty" jsonschema:"description=Degree or qualification name"`
	Institution    string `json:"institution,omitempty" jsonschema:"description=School or university name"`
	FieldOfStudy   string `json:"field_of_study,omitempty" jsonschema:"description=Field of study or major"`
	GraduationYear int    `json:"graduation_year,omitempty" jsonschema:"description=Year of graduation"`
	GPA            string `json:"gpa,omitempty" jsonschema:"description=GPA or grade if mentioned"`
}

// CandidateInfo is what the CV parser extracts from a resume.
type CandidateInfo struct {
	Name           string           `json:"name,omitempty" jsonschema:"description=Full name of the candidate"`
	Email          string           `json:"email,omitempty" jsonschema:"description=Email address"`
	Phone          string           `json:"phone,omitempty" jsonschema:"description=Phone number"`
	Location       Location         `json:"location,omitempty"`
	LinkedIn       string           `json:"linkedin,omitempty" jsonschema:"description=LinkedIn profile URL"`
	Summary        string           `json:"summary,omitempty" jsonschema:"description=Professional summary or objective"`
	Skills         StringList       `json:"skills" jsonschema:"description=Technical and soft skills"`
	WorkExperience []WorkExperience `json:"work_experience" jsonschema:"description=Work experience history"`
	Education      []Education      `json:"education" jsonschema:"description=Educational background"`
	Languages      StringList       `json:"languages" jsonschema:"description=Languages spoken with proficiency"`
	Certifications StringList       `json:"certifications" jsonschema:"description=Professional certifications"`
}

func (candidate *CandidateInfo) UnmarshalJSON(data []byte) error {
	type plain CandidateInfo

	aux := struct {
		*plain
		PersonalInformation struct {
			Name string `json:"name"`
		} `json:"personal_information"`
	}{plain: (*plain)(candidate)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if candidate.Name == "" {
		candidate.Name = aux.PersonalInformation.Name
	}

	candidate.normalize()
	return nil
}

func (candidate *CandidateInfo) normalize() {
	if candidate.Skills == nil {
		candidate.Skills = StringList{}
	}

	if candidate.Languages == nil {
		candidate.Languages = StringList{}
	}

	if candidate.Certifications == nil {
		candidate.Certifications = StringList{}
	}

	if candidate.WorkExperience == nil {
		candidate.WorkExperience = []WorkExperience{}
	}

	if candidate.Education == nil {
		candidate.Education = []Education{}
	}
}

// JobRequirement is what the job requirements parser extracts from a posting.
type JobRequirement struct {
	JobTitle            string     `json:"job_title,omitempty" jsonschema:"description=Job title or position name"`
	Company             string     `json:"company,omitempty" jsonschema:"description=Company or organization name"`
	Location            Location   `json:"location,omitempty"`
	EmploymentType      string     `json:"employment_type,omitempty" jsonschema:"description=Full-time or part-time or contract or internship"`
	SalaryRange         string     `json:"salary_range,omitempty" jsonschema:"description=Salary range if mentioned"`
	RequiredSkills      StringList `json:"required_skills" jsonschema:"description=Must-have skills"`
	PreferredSkills     StringList `json:"preferred_skills" jsonschema:"description=Nice-to-have skills"`
	RequiredExperience  string     `json:"required_experience,omitempty" jsonschema:"description=Years or level of experience"`
	RequiredEducation   string     `json:"required_education,omitempty" jsonschema:"description=Required degree level"`
	EducationField      StringList `json:"education_field" jsonschema:"description=Preferred fields of study"`
	Languages           StringList `json:"languages" jsonschema:"description=Required languages and proficiency"`
	Certifications      StringList `json:"certifications" jsonschema:"description=Required certifications or licenses"`
	WorkAuthorization   string     `json:"work_authorization,omitempty" jsonschema:"description=Visa or citizenship requirements"`
	JobDescription      string     `json:"job_description,omitempty" jsonschema:"description=Job description or summary"`
	Responsibilities    StringList `json:"responsibilities" jsonschema:"description=Key responsibilities"`
	Benefits            StringList `json:"benefits" jsonschema:"description=Benefits and perks"`
	ApplicationDeadline string     `json:"application_deadline,omitempty" jsonschema:"description=Application deadline"`
	StartDate           string     `json:"start_date,omitempty" jsonschema:"description=Expected start date"`
	RemoteOption        Flag       `json:"remote_option" jsonschema:"description=Whether remote work is available"`
}

func (requirement *JobRequirement) UnmarshalJSON(data []byte) error {
	type plain JobRequirement

	if err := json.Unmarshal(data, (*plain)(requirement)); err != nil {
		return err
	}

	for _, list := range []*StringList{
		&requirement.RequiredSkills,
		&requirement.PreferredSkills,
		&requirement.EducationField,
		&requirement.Languages,
		&requirement.Certifications,
		&requirement.Responsibilities,
		&requirement.Benefits,
	} {
		if *list == nil {
			*list = StringList{}
		}
	}

	return nil
}
