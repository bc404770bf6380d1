package director

// NumberOfSections returns the count of static sections plus the data section.
func (d *Director[T]) NumberOfSections() int {
	return len(d.sectionsBefore) + len(d.sectionsAfter) + 1
}

// NumberOfRows returns the row count of a section. The data section reports
// the first result group only and zero when the provider has no groups.
func (d *Director[T]) NumberOfRows(section int) int {
	if section == d.DataSectionIndex() {
		if d.provider == nil {
			return 0
		}
		groups := d.provider.ResultGroups()
		if len(groups) == 0 {
			return 0
		}
		if len(groups) > 1 {
			d.log.V(1).Info("provider reported several groups, using the first", "groups", len(groups))
		}
		return groups[0].Count
	}
	s, err := d.staticSection(section)
	if err != nil {
		return 0
	}
	return len(s.Rows)
}

// CellForRow dequeues a cell for the row's reuse identifier and configures it.
func (d *Director[T]) CellForRow(path IndexPath) Cell {
	row := d.RowAt(path)
	cell := d.widget.DequeueCell(row.ReuseID, path)
	if row.Configure != nil {
		row.Configure(cell)
	}
	row.Invoke(ActionConfigure, cell, path)
	return cell
}

// HeightForRow resolves a row height: height handler, then the row's own
// height, then the height strategy, then Automatic.
func (d *Director[T]) HeightForRow(path IndexPath) int {
	row := d.RowAt(path)
	if h, ok := asHeight(row.Invoke(ActionHeight, nil, path)); ok {
		return h
	}
	if row.Height > 0 {
		return row.Height
	}
	if d.heightStrategy != nil {
		return d.heightStrategy.Height(row, path)
	}
	return Automatic
}

// EstimatedHeightForRow resolves an estimated row height the same way as
// HeightForRow, registering the row's reuse identifier first.
func (d *Director[T]) EstimatedHeightForRow(path IndexPath) int {
	row := d.RowAt(path)
	if d.registerer != nil {
		d.registerer.Register(row.ReuseID)
	}
	if h, ok := asHeight(row.Invoke(ActionEstimatedHeight, nil, path)); ok {
		return h
	}
	if row.EstimatedHeight > 0 {
		return row.EstimatedHeight
	}
	if d.heightStrategy != nil {
		return d.heightStrategy.EstimatedHeight(row, path)
	}
	return Automatic
}

func asHeight(v any) (int, bool) {
	switch h := v.(type) {
	case int:
		return h, true
	case int64:
		return int(h), true
	case float64:
		return int(h), true
	}
	return 0, false
}

func (d *Director[T]) TitleForHeader(section int) string {
	if section == d.DataSectionIndex() {
		return d.dataChrome.HeaderTitle
	}
	s, _ := d.staticSection(section)
	return s.HeaderTitle
}

func (d *Director[T]) TitleForFooter(section int) string {
	if section == d.DataSectionIndex() {
		return d.dataChrome.FooterTitle
	}
	s, _ := d.staticSection(section)
	return s.FooterTitle
}

func (d *Director[T]) ViewForHeader(section int) View {
	if section == d.DataSectionIndex() {
		return d.dataChrome.HeaderView
	}
	s, _ := d.staticSection(section)
	return s.HeaderView
}

func (d *Director[T]) ViewForFooter(section int) View {
	if section == d.DataSectionIndex() {
		return d.dataChrome.FooterView
	}
	s, _ := d.staticSection(section)
	return s.FooterView
}

func (d *Director[T]) HeightForHeader(section int) int {
	if section == d.DataSectionIndex() {
		return d.dataChrome.headerHeight()
	}
	s, _ := d.staticSection(section)
	return s.headerHeight()
}

func (d *Director[T]) HeightForFooter(section int) int {
	if section == d.DataSectionIndex() {
		return d.dataChrome.footerHeight()
	}
	s, _ := d.staticSection(section)
	return s.footerHeight()
}

func (d *Director[T]) visibleCell(path IndexPath) Cell {
	if d.widget == nil {
		return nil
	}
	cell, ok := d.widget.CellAt(path)
	if !ok {
		return nil
	}
	return cell
}

// DidSelect runs the row's click handler. A non-nil result claims the
// selection: the row stays selected and the select handler is skipped.
// Otherwise the select handler runs.
func (d *Director[T]) DidSelect(path IndexPath) {
	cell := d.visibleCell(path)
	if d.Invoke(ActionClick, cell, path) != nil {
		return
	}
	d.Invoke(ActionSelect, cell, path)
}

func (d *Director[T]) DidDeselect(path IndexPath) {
	d.Invoke(ActionDeselect, d.visibleCell(path), path)
}

func (d *Director[T]) WillDisplay(cell Cell, path IndexPath) {
	d.Invoke(ActionWillDisplay, cell, path)
}

// ShouldHighlight defers to the row's handler and defaults to true.
func (d *Director[T]) ShouldHighlight(path IndexPath) bool {
	if ok, isBool := d.Invoke(ActionShouldHighlight, d.visibleCell(path), path).(bool); isBool {
		return ok
	}
	return true
}

// WillSelect lets a row redirect selection. Rows without a willSelect handler,
// and handlers that return anything but an IndexPath, keep path.
func (d *Director[T]) WillSelect(path IndexPath) IndexPath {
	if !d.HasAction(ActionWillSelect, path) {
		return path
	}
	switch target := d.Invoke(ActionWillSelect, d.visibleCell(path), path).(type) {
	case IndexPath:
		return target
	case *IndexPath:
		if target != nil {
			return *target
		}
	}
	return path
}

// CanEdit reports whether the row offers edit actions or handles deletion.
func (d *Director[T]) CanEdit(path IndexPath) bool {
	row := d.RowAt(path)
	return len(row.EditActions) > 0 || row.HasAction(ActionClickDelete)
}

func (d *Director[T]) EditActions(path IndexPath) []EditAction {
	return d.RowAt(path).EditActions
}

// CommitEdit routes a delete to the row's clickDelete handler.
func (d *Director[T]) CommitEdit(style EditStyle, path IndexPath) {
	if style != EditDelete {
		return
	}
	d.Invoke(ActionClickDelete, d.visibleCell(path), path)
}

// CellAction resolves cell back to its coordinate and runs the row's custom
// handler for key. Cells the widget no longer shows are ignored.
func (d *Director[T]) CellAction(cell Cell, key string) {
	if d.widget == nil || cell == nil {
		return
	}
	path, ok := d.widget.PathForCell(cell)
	if !ok {
		return
	}
	d.Invoke(CustomAction(key), cell, path)
}
