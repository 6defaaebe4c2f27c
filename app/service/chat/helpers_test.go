package chat

import (
	"context"
	"errors"

	"pamubot/app/client/brain"
	"pamubot/app/client/github"
	"pamubot/app/client/mailer"
	"pamubot/app/client/medium"
	"pamubot/app/client/youtube"
)

type fakeCompleter struct {
	textResponses []string
	jsonResponses []string
	textErr       error
	jsonErr       error

	textCalls    int
	jsonCalls    int
	lastSystem   string
	lastUserText string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.textCalls++
	f.lastSystem = system
	f.lastUserText = user

	if f.textErr != nil {
		return "", f.textErr
	}
	if len(f.textResponses) == 0 {
		return "", errors.New("no scripted text response")
	}

	response := f.textResponses[0]
	f.textResponses = f.textResponses[1:]

	return response, nil
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, system, user string) (string, error) {
	f.jsonCalls++
	f.lastSystem = system
	f.lastUserText = user

	if f.jsonErr != nil {
		return "", f.jsonErr
	}
	if len(f.jsonResponses) == 0 {
		return "", errors.New("no scripted json response")
	}

	response := f.jsonResponses[0]
	f.jsonResponses = f.jsonResponses[1:]

	return response, nil
}

type fakeBrain struct {
	docs []brain.Document
	err  error

	lastShortcuts []string
	lastKeywords  []string
}

func (f *fakeBrain) Search(_ context.Context, shortcuts, keywords []string) ([]brain.Document, error) {
	f.lastShortcuts = shortcuts
	f.lastKeywords = keywords

	if f.err != nil {
		return nil, f.err
	}

	return f.docs, nil
}

type fakeMedium struct {
	articles []medium.Article
	content  *medium.ArticleContent
	err      error

	lastLimit int
}

func (f *fakeMedium) List(_ context.Context, limit int) ([]medium.Article, error) {
	f.lastLimit = limit
	return f.articles, f.err
}

func (f *fakeMedium) Search(_ context.Context, _ []string) ([]medium.Article, error) {
	return f.articles, f.err
}

func (f *fakeMedium) GetContent(_ context.Context, _ string) (*medium.ArticleContent, error) {
	return f.content, f.err
}

type fakeYoutube struct {
	videos     []youtube.Video
	transcript string
	err        error

	lastLimit int
}

func (f *fakeYoutube) List(_ context.Context, limit int) ([]youtube.Video, error) {
	f.lastLimit = limit
	return f.videos, f.err
}

func (f *fakeYoutube) Search(_ context.Context, _ []string) ([]youtube.Video, error) {
	return f.videos, f.err
}

func (f *fakeYoutube) GetTranscript(_ context.Context, _ string) (string, error) {
	return f.transcript, f.err
}

type fakeGithub struct {
	repos  []github.Repo
	readme *github.FileContent
	file   *github.FileContent
	err    error

	lastLimit int
}

func (f *fakeGithub) List(_ context.Context, limit int) ([]github.Repo, error) {
	f.lastLimit = limit
	return f.repos, f.err
}

func (f *fakeGithub) Search(_ context.Context, _ []string) ([]github.Repo, error) {
	return f.repos, f.err
}

func (f *fakeGithub) GetReadme(_ context.Context, _ string) (*github.FileContent, error) {
	return f.readme, f.err
}

func (f *fakeGithub) GetFile(_ context.Context, _, _ string) (*github.FileContent, error) {
	return f.file, f.err
}

func (f *fakeGithub) SearchAndRead(_ context.Context, _ []string) (*github.Repo, *github.FileContent, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if len(f.repos) == 0 {
		return nil, nil, errors.New("no repositories found")
	}

	return &f.repos[0], f.readme, nil
}

type fakeMailer struct {
	receipt *mailer.Receipt
	err     error

	lastMsg mailer.Message
	calls   int
}

func (f *fakeMailer) Send(_ context.Context, msg mailer.Message) (*mailer.Receipt, error) {
	f.calls++
	f.lastMsg = msg

	if f.err != nil {
		return nil, f.err
	}

	return f.receipt, nil
}

func newTestExecutor() (*Executor, *fakeBrain, *fakeMedium, *fakeYoutube, *fakeGithub, *fakeMailer) {
	brainSrc := &fakeBrain{}
	mediumSrc := &fakeMedium{}
	youtubeSrc := &fakeYoutube{}
	githubSrc := &fakeGithub{}
	mailSrc := &fakeMailer{receipt: &mailer.Receipt{MessageID: "msg-1"}}

	return NewExecutor(brainSrc, mediumSrc, youtubeSrc, githubSrc, mailSrc),
		brainSrc, mediumSrc, youtubeSrc, githubSrc, mailSrc
}
