package catalog

const titleSystem = `You name custom device decals for an online shop. Titles are short, catchy and family friendly.`

const titlePrompt = `Create a short, catchy title for a decal described as:
{{.prompt}}`

const enhancePrompt = `Rewrite the following decal idea into a detailed image generation prompt in a {{.style}} style.
Describe subject, composition, color palette and background. The design must work as a die-cut decal with a clean outline.

Idea: {{.prompt}}`

const tagsPrompt = `Suggest between three and eight lowercase search tags for a decal described as:
{{.prompt}}`

const imagePrompt = `Generate a {{.style}} style decal artwork on a plain background: {{.prompt}}
{{- if hasKey . "referenceImage"}}
Use this reference image for composition and palette:
{{media .referenceImage}}
{{- end}}`

const moderateSystem = `You moderate user generated decal designs for a print shop. Reject hateful, sexual, violent or trademarked content. Use needs_review when unsure.`

const moderatePrompt = `Review this decal design. The author described it as: {{.prompt}}
{{media .imageDataUri}}
Return a verdict and a one sentence reason.`

const narratePrompt = `Read the following decal description aloud in a warm, upbeat voice:
{{.text}}`

const fulfillSystem = `You submit print orders to the print-on-demand partner. Always call the ` + SendOrderToolName + ` tool exactly once, passing the order fields unchanged, then report the partner's answer.`

const fulfillPrompt = `Submit this order:
{{toPrettyJson .}}`
