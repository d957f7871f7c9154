package bundle

// Section identifica una parte del bundle.
type Section string

const (
	SectionDescriptor Section = "descriptor"
	SectionJCasC      Section = "jcasc"
	SectionItems      Section = "items"
	SectionRBAC       Section = "rbac"
	SectionCatalog    Section = "catalog"
	SectionPlugins    Section = "plugins"
	SectionVariables  Section = "variables"
)

// DiffSections son las secciones que se comparan archivo a archivo, en orden estable.
var DiffSections = []Section{
	SectionJCasC,
	SectionItems,
	SectionRBAC,
	SectionCatalog,
	SectionPlugins,
	SectionVariables,
}

func (s Section) String() string { return string(s) }

// Valid reporta si s es una de las secciones conocidas.
func (s Section) Valid() bool {
	if s == SectionDescriptor {
		return true
	}
	for _, d := range DiffSections {
		if d == s {
			return true
		}
	}
	return false
}
