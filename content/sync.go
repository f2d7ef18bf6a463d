package content

// CopySynchronized copies every synchronised field of source onto target.
// Fields the target overrides are left alone. Many to many values are
// replaced wholesale and child rows are cloned into the target's locale.
func CopySynchronized(source, target Instance) {
	overrider, _ := target.(Overrider)
	for _, f := range source.Model().Fields {
		if !f.IsSynchronized(source) {
			continue
		}
		if f.Overridable && overrider != nil && overrider.IsOverridden(f.Name) {
			continue
		}
		target.SetValue(f.Name, Clone(source.Value(f.Name), target.Locale()))
	}
}
