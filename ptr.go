package vidframe

func ptr[T any](v T) *T {
	return &v
}
