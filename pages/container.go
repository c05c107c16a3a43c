// Package pages 负责单页容器的组装，以及所有页面在世界坐标中的堆叠、虚拟化与导航。
package pages

import (
	"fmt"

	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/logger"
	"github.com/ByLCY/lessoncanvas/scene"
)

// Geometry 是单页的尺寸与边距（像素）。
type Geometry struct {
	Width   float64
	Height  float64
	Margins layout.Margins
}

// HeaderBounds 是顶部边距带，横跨整页。
func (g Geometry) HeaderBounds() layout.Bounds {
	return layout.Bounds{Width: g.Width, Height: g.Margins.Top}
}

// BodyBounds 是四边内缩后的内容区。
func (g Geometry) BodyBounds() layout.Bounds {
	return layout.Bounds{Width: g.Width, Height: g.Height}.Inset(g.Margins)
}

// FooterBounds 是底部边距带，横跨整页。
func (g Geometry) FooterBounds() layout.Bounds {
	return layout.Bounds{Y: g.Height - g.Margins.Bottom, Width: g.Width, Height: g.Margins.Bottom}
}

// Container 组装一页的页眉、正文与页脚。坐标相对页面左上角，Root 的偏移由管理器设置。
type Container struct {
	index int
	meta  layout.PageMetadata
	geom  Geometry
	opts  layout.RenderOptions
	log   *logger.Logger

	root   *scene.Group
	header *scene.Group
	body   *scene.Group
	footer *scene.Group

	regions   layout.PageLayout
	destroyed bool
}

// NewContainer 创建并渲染一页。
func NewContainer(index int, meta layout.PageMetadata, geom Geometry, opts layout.RenderOptions) (*Container, error) {
	c := &Container{
		index: index,
		meta:  meta,
		geom:  geom,
		opts:  opts,
		log:   logger.OrNop(opts.Logger).With("component", "page", "index", index),
		root:  scene.NewGroup(fmt.Sprintf("page-%d", index)),
	}
	c.header = scene.NewGroup("header")
	c.body = scene.NewGroup("body")
	c.footer = scene.NewGroup("footer")
	c.root.AddChild(c.header)
	c.root.AddChild(c.body)
	c.root.AddChild(c.footer)
	c.regions = layout.PageLayout{Index: index, Width: geom.Width, Height: geom.Height}

	if err := c.renderBody(); err != nil {
		c.root.Destroy()
		return nil, err
	}
	if err := c.renderHeaderFooter(); err != nil {
		c.root.Destroy()
		return nil, err
	}
	return c, nil
}

// Index returns the page index.
func (c *Container) Index() int { return c.index }

// Root returns the page's scene group.
func (c *Container) Root() *scene.Group { return c.root }

// Metadata returns the page's current metadata.
func (c *Container) Metadata() layout.PageMetadata { return c.meta }

// Regions returns the laid-out regions.
func (c *Container) Regions() layout.PageLayout { return c.regions }

// Destroyed reports whether Destroy has run.
func (c *Container) Destroyed() bool { return c.destroyed }

// UpdateMetadata 只重画页眉与页脚；正文树换了才重排正文。
func (c *Container) UpdateMetadata(meta layout.PageMetadata) error {
	if c.destroyed {
		return nil
	}
	bodyChanged := meta.Layout != c.meta.Layout
	c.meta = meta
	if bodyChanged {
		if err := c.renderBody(); err != nil {
			return err
		}
	}
	return c.renderHeaderFooter()
}

// SetMargins 按新边距重排全部区域。
func (c *Container) SetMargins(m layout.Margins) error {
	if c.destroyed {
		return nil
	}
	c.geom.Margins = m
	if err := c.renderBody(); err != nil {
		return err
	}
	return c.renderHeaderFooter()
}

func (c *Container) renderHeaderFooter() error {
	inset := layout.Margins{Left: c.geom.Margins.Left, Right: c.geom.Margins.Right}
	header, err := layout.RenderHeader(&c.meta, c.geom.HeaderBounds(), inset, c.opts)
	if err != nil {
		return fmt.Errorf("渲染第 %d 页页眉失败: %w", c.index+1, err)
	}
	footer, err := layout.RenderFooter(&c.meta, c.geom.FooterBounds(), inset, c.opts)
	if err != nil {
		return fmt.Errorf("渲染第 %d 页页脚失败: %w", c.index+1, err)
	}
	c.regions.Header = header
	c.regions.Footer = footer
	c.header.RemoveChildren()
	c.header.AddRegion(header)
	c.footer.RemoveChildren()
	c.footer.AddRegion(footer)
	return nil
}

func (c *Container) renderBody() error {
	body, err := layout.RenderBody(&c.meta, c.geom.BodyBounds(), c.opts)
	if err != nil {
		return fmt.Errorf("渲染第 %d 页正文失败: %w", c.index+1, err)
	}
	if body.Overflow {
		c.log.Warn("正文内容超出页面，超出部分未绘制")
	}
	c.regions.Body = body
	c.body.RemoveChildren()
	c.body.AddRegion(body)
	return nil
}

// Destroy 释放本页的全部图元。可重复调用。
func (c *Container) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.root.Destroy()
}
