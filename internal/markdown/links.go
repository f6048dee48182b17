package markdown

type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
	LinkKindHTML                LinkKind = "html"
)

// Link is one outgoing reference found in a post body.
type Link struct {
	Kind        LinkKind
	Destination string
}
