package nimfile_test

import (
	"net/url"

	"github.com/nimbus-storage/nimbus-file-go/nimfile"
	chk "gopkg.in/check.v1"
)

type ParsingURLSuite struct{}

var _ = chk.Suite(&ParsingURLSuite{})

func (s *ParsingURLSuite) TestParseFileURL(c *chk.C) {
	u, _ := url.Parse("https://myaccount.files.nimbus.dev/mystore/mydir/myfile.bin")
	parts := nimfile.NewFileURLParts(*u)

	c.Assert(parts.Scheme, chk.Equals, "https")
	c.Assert(parts.Host, chk.Equals, "myaccount.files.nimbus.dev")
	c.Assert(parts.StoreName, chk.Equals, "mystore")
	c.Assert(parts.FilePath, chk.Equals, "mydir/myfile.bin")
	c.Assert(parts.UnparsedParams, chk.Equals, "")

	rebuilt := parts.URL()
	c.Assert(rebuilt.String(), chk.Equals, u.String())
}

func (s *ParsingURLSuite) TestParseStoreURL(c *chk.C) {
	u, _ := url.Parse("https://myaccount.files.nimbus.dev/mystore")
	parts := nimfile.NewFileURLParts(*u)

	c.Assert(parts.StoreName, chk.Equals, "mystore")
	c.Assert(parts.FilePath, chk.Equals, "")

	rebuilt := parts.URL()
	c.Assert(rebuilt.String(), chk.Equals, u.String())
}

func (s *ParsingURLSuite) TestParseServiceURL(c *chk.C) {
	u, _ := url.Parse("https://myaccount.files.nimbus.dev/")
	parts := nimfile.NewFileURLParts(*u)

	c.Assert(parts.StoreName, chk.Equals, "")
	c.Assert(parts.FilePath, chk.Equals, "")
	c.Assert(parts.Host, chk.Equals, "myaccount.files.nimbus.dev")
}

func (s *ParsingURLSuite) TestParseURLKeepsQuery(c *chk.C) {
	u, _ := url.Parse("https://myaccount.files.nimbus.dev/mystore/myfile?comp=rangelist&timeout=30")
	parts := nimfile.NewFileURLParts(*u)

	c.Assert(parts.StoreName, chk.Equals, "mystore")
	c.Assert(parts.FilePath, chk.Equals, "myfile")
	c.Assert(parts.UnparsedParams, chk.Equals, "comp=rangelist&timeout=30")

	rebuilt := parts.URL()
	c.Assert(rebuilt.String(), chk.Equals, u.String())
}

func (s *ParsingURLSuite) TestRebuildURLFromModifiedParts(c *chk.C) {
	u, _ := url.Parse("https://myaccount.files.nimbus.dev/mystore/a/b/c")
	parts := nimfile.NewFileURLParts(*u)
	parts.StoreName = "otherstore"
	parts.FilePath = "x/y"

	rebuilt := parts.URL()
	c.Assert(rebuilt.String(), chk.Equals, "https://myaccount.files.nimbus.dev/otherstore/x/y")
}

func (s *ParsingURLSuite) TestPartsRoundTripThroughFileURL(c *chk.C) {
	fsu := getFSU()
	fileURL := fsu.NewStoreURL("mystore").NewFileURL("dir/file.dat")

	parts := nimfile.NewFileURLParts(fileURL.URL())
	c.Assert(parts.StoreName, chk.Equals, "mystore")
	c.Assert(parts.FilePath, chk.Equals, "dir/file.dat")

	rebuilt := nimfile.NewFileURL(parts.URL(), nimfile.NewPipeline(nimfile.NewAnonymousCredential(), nimfile.PipelineOptions{}))
	c.Assert(rebuilt.String(), chk.Equals, fileURL.String())
}
