package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	const base = "https://www.lindacars.com"

	tests := []struct {
		name string
		href string
		want string
	}{
		{
			name: "relative href joined to base",
			href: "/buy-car/jetour-t2-2026",
			want: "https://www.lindacars.com/buy-car/jetour-t2-2026",
		},
		{
			name: "query string stripped",
			href: "/buy-car/jetour-t2-2026?utm_source=tile&page=3",
			want: "https://www.lindacars.com/buy-car/jetour-t2-2026",
		},
		{
			name: "absolute href keeps its host",
			href: "https://www.lindacars.com/buy-car/bmw-x5?lang=en",
			want: "https://www.lindacars.com/buy-car/bmw-x5",
		},
		{
			name: "fragment stripped",
			href: "/buy-car/bmw-x5#gallery",
			want: "https://www.lindacars.com/buy-car/bmw-x5",
		},
		{
			name: "host lowercased",
			href: "https://WWW.LindaCars.com/buy-car/audi-q7",
			want: "https://www.lindacars.com/buy-car/audi-q7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CanonicalURL(base, tt.href)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalURLBadInput(t *testing.T) {
	t.Parallel()

	_, err := CanonicalURL("://bad", "/x")
	require.Error(t, err)

	_, err = CanonicalURL("https://www.lindacars.com", "http://%zz")
	require.Error(t, err)
}
