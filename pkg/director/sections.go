package director

// The methods below maintain a free-standing list of sections. The list is
// not consulted when routing rows; callers that want extra sections in the
// widget pass them as SectionsBefore/SectionsAfter.

// Sections returns a copy of the bookkeeping list.
func (d *Director[T]) Sections() []Section {
	return append([]Section(nil), d.sections...)
}

// IsEmpty reports whether the bookkeeping list holds no sections.
func (d *Director[T]) IsEmpty() bool {
	return len(d.sections) == 0
}

func (d *Director[T]) Append(section Section) *Director[T] {
	return d.AppendSections(section)
}

func (d *Director[T]) AppendSections(sections ...Section) *Director[T] {
	d.sections = append(d.sections, sections...)
	return d
}

// AppendRows appends a new section holding rows.
func (d *Director[T]) AppendRows(rows ...Row) *Director[T] {
	return d.Append(NewSection(rows...))
}

// Insert places section at index. Out-of-range indexes panic like a slice
// index would.
func (d *Director[T]) Insert(section Section, index int) *Director[T] {
	if index < 0 || index > len(d.sections) {
		panic("director: Insert index out of range")
	}
	d.sections = append(d.sections, Section{})
	copy(d.sections[index+1:], d.sections[index:])
	d.sections[index] = section
	return d
}

func (d *Director[T]) Delete(index int) *Director[T] {
	d.sections = append(d.sections[:index], d.sections[index+1:]...)
	return d
}

func (d *Director[T]) Clear() *Director[T] {
	d.sections = nil
	return d
}
