package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/stoic-reflections/internal/domain"
)

const (
	testSender  = "reflections@example.com"
	testWebsite = "https://stoic.example.com"
	testSecret  = "unsubscribe-secret"
)

func testTheme() domain.MonthlyTheme {
	return domain.MonthlyTheme{
		Name:        "Discipline and Self-Improvement",
		Description: "Focus on building habits, self-control, and starting fresh",
	}
}

func testContent() domain.GeneratedReflection {
	return domain.GeneratedReflection{
		Quote:       "You have power over your mind - outside events you do not.",
		Attribution: "Marcus Aurelius - Meditations 4.3",
		Reflection:  "First paragraph about\nthe dichotomy of control.\n\nSecond paragraph applying it\nto the day ahead.",
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Daily Stoic Reflection: Discipline and Self-Improvement", Subject(testTheme()))
}

func TestRenderer_ReflectionEmail(t *testing.T) {
	r := NewRenderer(testWebsite, testSecret)

	email, err := r.ReflectionEmail(testSender, "user@example.com", testContent(), testTheme())
	require.NoError(t, err)

	assert.Equal(t, testSender, email.From)
	assert.Equal(t, "user@example.com", email.To)
	assert.Equal(t, "Daily Stoic Reflection: Discipline and Self-Improvement", email.Subject)

	t.Run("html body", func(t *testing.T) {
		assert.Contains(t, email.HTMLBody, "<h1>Daily Stoic Reflection</h1>")
		assert.Contains(t, email.HTMLBody, `<div class="theme">Discipline and Self-Improvement</div>`)
		assert.Contains(t, email.HTMLBody, "You have power over your mind - outside events you do not.")
		assert.Contains(t, email.HTMLBody, "— Marcus Aurelius - Meditations 4.3")
		assert.Contains(t, email.HTMLBody, "<p>First paragraph about the dichotomy of control.</p>")
		assert.Contains(t, email.HTMLBody, "<p>Second paragraph applying it to the day ahead.</p>")
		assert.Contains(t, email.HTMLBody, "Daily Stoic Reflection • Powered by Claude")
	})

	t.Run("text body", func(t *testing.T) {
		assert.True(t, strings.HasPrefix(email.TextBody, strings.Repeat("=", 70)))
		assert.Contains(t, email.TextBody, "DAILY STOIC REFLECTION")
		assert.Contains(t, email.TextBody, `"You have power over your mind - outside events you do not."`)
		assert.Contains(t, email.TextBody, "— Marcus Aurelius - Meditations 4.3")
		assert.Contains(t, email.TextBody, "First paragraph about\nthe dichotomy of control.")
		assert.Contains(t, email.TextBody, "Daily Stoic Reflection • Powered by Claude")
	})

	t.Run("unsubscribe links", func(t *testing.T) {
		token := domain.UnsubscribeTokenFor("user@example.com", testSecret)
		link := testWebsite + "/unsubscribe.html?email=user%40example.com&token=" + token

		assert.Contains(t, email.TextBody, "Unsubscribe: "+link)
		// html/template escapes the ampersand inside the href.
		assert.Contains(t, email.HTMLBody, testWebsite+"/unsubscribe.html?email=user%40example.com&amp;token="+token)
	})
}

func TestRenderer_ReflectionEmail_EscapesContent(t *testing.T) {
	r := NewRenderer(testWebsite, testSecret)

	content := domain.GeneratedReflection{
		Quote:       `Fear <script>alert("x")</script> less`,
		Attribution: "Seneca & Friends - Letters",
		Reflection:  "Body with <b>markup</b> that must not pass through.",
	}

	email, err := r.ReflectionEmail(testSender, "user@example.com", content, testTheme())
	require.NoError(t, err)

	assert.NotContains(t, email.HTMLBody, "<script>")
	assert.Contains(t, email.HTMLBody, "&lt;script&gt;")
	assert.Contains(t, email.HTMLBody, "Seneca &amp; Friends - Letters")
	assert.Contains(t, email.HTMLBody, "&lt;b&gt;markup&lt;/b&gt;")

	// The text body carries content untouched.
	assert.Contains(t, email.TextBody, `Fear <script>alert("x")</script> less`)
}

func TestRenderer_ReflectionEmail_FooterLinkRequiresWebsiteAndSecret(t *testing.T) {
	tests := []struct {
		name       string
		websiteURL string
		secret     string
	}{
		{name: "no website", websiteURL: "", secret: testSecret},
		{name: "no secret", websiteURL: testWebsite, secret: ""},
		{name: "neither", websiteURL: "", secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(tt.websiteURL, tt.secret)

			email, err := r.ReflectionEmail(testSender, "user@example.com", testContent(), testTheme())
			require.NoError(t, err)

			assert.NotContains(t, email.HTMLBody, "Unsubscribe")
			assert.NotContains(t, email.TextBody, "Unsubscribe")
			assert.True(t, strings.HasSuffix(email.TextBody, "Daily Stoic Reflection • Powered by Claude"))
		})
	}
}

func TestRenderer_ConfirmationEmail(t *testing.T) {
	// Trailing slash on the website URL must not produce a double slash.
	r := NewRenderer(testWebsite+"/", testSecret)

	email, err := r.ConfirmationEmail(testSender, "new@example.com", "tok_abc123")
	require.NoError(t, err)

	assert.Equal(t, testSender, email.From)
	assert.Equal(t, "new@example.com", email.To)
	assert.Equal(t, "Confirm Your Daily Stoic Reflection Subscription", email.Subject)

	link := testWebsite + "/confirm.html?token=tok_abc123"
	assert.Contains(t, email.HTMLBody, link)
	assert.Contains(t, email.HTMLBody, "Confirm Subscription")
	assert.Contains(t, email.HTMLBody, "you can safely ignore this email")
	assert.Contains(t, email.TextBody, link)
	assert.Contains(t, email.TextBody, "safely ignore this email")
}

func TestRenderer_ConfirmationEmail_RequiresWebsiteURL(t *testing.T) {
	r := NewRenderer("", testSecret)

	_, err := r.ConfirmationEmail(testSender, "new@example.com", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "website URL")
}

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name       string
		reflection string
		want       []string
	}{
		{
			name:       "single paragraph",
			reflection: "One steady thought.",
			want:       []string{"One steady thought."},
		},
		{
			name:       "hard-wrapped lines collapse",
			reflection: "A line\nwrapped   by\nthe model.",
			want:       []string{"A line wrapped by the model."},
		},
		{
			name:       "blank blocks dropped",
			reflection: "First.\n\n\n\nSecond.\n\n   \n",
			want:       []string{"First.", "Second."},
		},
		{
			name:       "empty input",
			reflection: "",
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitParagraphs(tt.reflection))
		})
	}
}
