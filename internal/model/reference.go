package model

// Reference is a grading reference produced by an engine. The core only ever
// reads its name.
type Reference interface {
	Name() string
}

// Loaded is what deserializing one reference source yields: either a single
// reference or a list of them.
type Loaded struct {
	single Reference
	many   []Reference
	isList bool
}

func Single(ref Reference) Loaded {
	return Loaded{single: ref}
}

func Many(refs []Reference) Loaded {
	return Loaded{many: refs, isList: true}
}

func (l Loaded) IsList() bool {
	return l.isList
}

// Flatten returns the references in source order.
func (l Loaded) Flatten() []Reference {
	if l.isList {
		return append([]Reference(nil), l.many...)
	}
	if l.single == nil {
		return nil
	}
	return []Reference{l.single}
}

func ReferenceNames(refs []Reference) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		names = append(names, ref.Name())
	}
	return names
}
